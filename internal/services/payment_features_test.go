package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"student-services/models"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type paymentScenario struct {
	t       *testing.T
	db      *gorm.DB
	svc     *PaymentService
	student *models.User
	admin   *models.User
	payment *models.Payment
	result  *ProcessResult
	err     error
}

func (s *paymentScenario) reset() {
	s.db = openTestDB(s.t)
	s.svc = NewPaymentService(s.db, NewNotificationService(s.db, NotificationOptions{}), s.t.TempDir())
	s.student, s.admin, s.payment, s.result, s.err = nil, nil, nil, nil, nil
}

func (s *paymentScenario) aStudentWithBalance(balance int) error {
	s.student = &models.User{FullName: "Student", Phone: "+77060000001", PasswordHash: "x", Role: models.RoleUser, Balance: int64(balance)}
	return s.db.Create(s.student).Error
}

func (s *paymentScenario) anAdministrator() error {
	s.admin = &models.User{FullName: "Admin", Phone: "+77060000002", PasswordHash: "x", Role: models.RoleAdmin}
	return s.db.Create(s.admin).Error
}

func (s *paymentScenario) aPaymentOf(status string, amount int) error {
	s.payment = &models.Payment{SenderID: s.student.ID, RequestedAmount: decimal.NewFromInt(int64(amount)), Status: status}
	if status == models.PaymentSuccess {
		approved := decimal.NewFromInt(int64(amount))
		s.payment.ApprovedAmount = &approved
	}
	return s.db.Create(s.payment).Error
}

func (s *paymentScenario) process(in ProcessPaymentInput) error {
	s.result, s.err = s.svc.ProcessPayment(context.Background(), in)
	return nil
}

func (s *paymentScenario) adminSetsStatus(status string) error {
	return s.process(ProcessPaymentInput{PaymentID: s.payment.ID, Status: status, RejectReason: "reason", AdminID: s.admin.ID})
}

func (s *paymentScenario) adminSetsStatusWithAmount(status string, amount int) error {
	approved := decimal.NewFromInt(int64(amount))
	return s.process(ProcessPaymentInput{PaymentID: s.payment.ID, Status: status, ApprovedAmount: &approved, AdminID: s.admin.ID})
}

func (s *paymentScenario) adminRejectsWithReason(reason string) error {
	return s.process(ProcessPaymentInput{PaymentID: s.payment.ID, Status: models.PaymentRejected, RejectReason: reason, AdminID: s.admin.ID})
}

func (s *paymentScenario) studentSetsStatus(status string) error {
	return s.process(ProcessPaymentInput{PaymentID: s.payment.ID, Status: status, AdminID: s.student.ID})
}

func (s *paymentScenario) adminSetsStatusOfPayment(id int, status string) error {
	return s.process(ProcessPaymentInput{PaymentID: uint(id), Status: status, AdminID: s.admin.ID})
}

func (s *paymentScenario) theResultCodeIs(code string) error {
	if s.err != nil {
		return fmt.Errorf("unexpected error: %v", s.err)
	}
	if string(s.result.Code) != code {
		return fmt.Errorf("expected result code %s, got %s (%s)", code, s.result.Code, s.result.Message)
	}
	return nil
}

func (s *paymentScenario) theApprovedAmountIs(amount int) error {
	if s.result == nil || s.result.Payment == nil || s.result.Payment.ApprovedAmount == nil {
		return fmt.Errorf("payment has no approved amount")
	}
	if !s.result.Payment.ApprovedAmount.Equal(decimal.NewFromInt(int64(amount))) {
		return fmt.Errorf("expected approved amount %d, got %s", amount, s.result.Payment.ApprovedAmount)
	}
	return nil
}

func (s *paymentScenario) theStudentBalanceIs(balance int) error {
	var u models.User
	if err := s.db.First(&u, s.student.ID).Error; err != nil {
		return err
	}
	if u.Balance != int64(balance) {
		return fmt.Errorf("expected balance %d, got %d", balance, u.Balance)
	}
	return nil
}

func (s *paymentScenario) theRequestFailsWith(message string) error {
	if s.err == nil {
		return fmt.Errorf("expected error containing %q", message)
	}
	if !strings.Contains(s.err.Error(), message) {
		return fmt.Errorf("expected error containing %q, got %q", message, s.err.Error())
	}
	return nil
}

func (s *paymentScenario) thePaymentStatusIs(status string) error {
	var p models.Payment
	if err := s.db.First(&p, s.payment.ID).Error; err != nil {
		return err
	}
	if p.Status != status {
		return fmt.Errorf("expected payment status %s, got %s", status, p.Status)
	}
	return nil
}

func initializePaymentScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		sc := &paymentScenario{t: t}

		ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
			sc.reset()
			return ctx, nil
		})

		ctx.Step(`^a student with balance (\d+)$`, sc.aStudentWithBalance)
		ctx.Step(`^an administrator$`, sc.anAdministrator)
		ctx.Step(`^a "([^"]*)" payment of (\d+)$`, sc.aPaymentOf)

		ctx.Step(`^the administrator sets the payment status to "([^"]*)"$`, sc.adminSetsStatus)
		ctx.Step(`^the administrator sets the payment status to "([^"]*)" with amount (\d+)$`, sc.adminSetsStatusWithAmount)
		ctx.Step(`^the administrator rejects the payment with reason "([^"]*)"$`, sc.adminRejectsWithReason)
		ctx.Step(`^the student sets the payment status to "([^"]*)"$`, sc.studentSetsStatus)
		ctx.Step(`^the administrator sets the status of payment (\d+) to "([^"]*)"$`, sc.adminSetsStatusOfPayment)

		ctx.Step(`^the result code is "([^"]*)"$`, sc.theResultCodeIs)
		ctx.Step(`^the approved amount is (\d+)$`, sc.theApprovedAmountIs)
		ctx.Step(`^the student balance is (\d+)$`, sc.theStudentBalanceIs)
		ctx.Step(`^the request fails with "([^"]*)"$`, sc.theRequestFailsWith)
		ctx.Step(`^the payment status is "([^"]*)"$`, sc.thePaymentStatusIs)
	}
}

func TestPaymentFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializePaymentScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/payment_processing.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

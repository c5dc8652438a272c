package services

import "student-services/models"

// ResultCode - итог обработки платежа администратором.
type ResultCode string

const (
	ResultSuccess           ResultCode = "Success"
	ResultAlreadySuccess    ResultCode = "AlreadySuccess"
	ResultNotFound          ResultCode = "NotFound"
	ResultUnauthorized      ResultCode = "Unauthorized"
	ResultInvalidTransition ResultCode = "InvalidTransition"
)

// checkTransition решает, разрешён ли переход current -> requested.
//
//	Waiting  -> Success   разрешён
//	Waiting  -> Rejected  разрешён
//	Rejected -> Success   разрешён
//	Success  -> Success   AlreadySuccess, баланс не начисляется повторно
//	всё остальное         InvalidTransition (в том числе Rejected -> Rejected)
func checkTransition(current, requested string) ResultCode {
	switch {
	case current == models.PaymentSuccess && requested == models.PaymentSuccess:
		return ResultAlreadySuccess
	case requested == models.PaymentSuccess &&
		(current == models.PaymentWaiting || current == models.PaymentRejected):
		return ResultSuccess
	case current == models.PaymentWaiting && requested == models.PaymentRejected:
		return ResultSuccess
	default:
		return ResultInvalidTransition
	}
}

func transitionMessage(code ResultCode, current, requested string) string {
	switch code {
	case ResultAlreadySuccess:
		return "Payment is already approved"
	case ResultInvalidTransition:
		return "Cannot change payment status from " + current + " to " + requested
	}
	return ""
}

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"student-services/internal/auth"
	"student-services/internal/cache"
	"student-services/internal/feed"
	"student-services/internal/handlers"
	"student-services/internal/middleware"
	"student-services/internal/services"
	"student-services/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *auth.TokenIssuer
	users  *services.UserService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	userCache := cache.NewUserCache(nil)
	notifications := services.NewNotificationService(db, services.NotificationOptions{})
	users := services.NewUserService(db, tokens, services.UserOptions{})
	dir := t.TempDir()

	r := gin.New()
	SetupRoutes(r, &Handlers{
		Auth:          handlers.NewAuthHandler(users, time.Hour),
		Payments:      handlers.NewPaymentHandler(services.NewPaymentService(db, notifications, dir)),
		Users:         handlers.NewUserHandler(users, services.NewAdminService(db, notifications, userCache)),
		Notifications: handlers.NewNotificationHandler(notifications),
		Designs:       handlers.NewDesignHandler(services.NewDesignService(db)),
		Presentations: handlers.NewPresentationHandler(services.NewPresentationService(db, notifications, services.PresentationOptions{
			UploadDir:    dir,
			DocumentsDir: dir,
			PricePerPage: 100,
		})),
		APIKeys:     handlers.NewAPIKeyHandler(services.NewAPIKeyService(db)),
		Feed:        feed.NewHub(),
		RequireAuth: middleware.AuthMiddleware(tokens, users, userCache),
	})
	return &testApp{router: r, db: db, tokens: tokens, users: users}
}

func (a *testApp) user(t *testing.T, phone, role string, balance int64) (*models.User, string) {
	t.Helper()
	u := &models.User{FullName: "User " + phone, Phone: phone, PasswordHash: "x", Role: role, Balance: balance, IsVerified: true}
	require.NoError(t, a.db.Create(u).Error)
	token, err := a.tokens.Issue(u.ID, u.Role)
	require.NoError(t, err)
	return u, token
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	ResultCode string          `json:"resultCode"`
	Errors     []string        `json:"errors"`
	Data       json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"fullName": "Aruzhan Bek", "phone": "+7 701 555 44 33", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.User
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))

	w = app.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"phone": "+77015554433", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, w.Code, "unverified users cannot log in")

	code, err := app.users.IssueVerificationCode(context.Background(), created.ID)
	require.NoError(t, err)

	w = app.do(t, http.MethodPost, "/api/auth/verify", "", gin.H{"phone": "+77015554433", "code": "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/api/auth/verify", "", gin.H{"phone": "+77015554433", "code": code.Code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var verified struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &verified))
	require.NotEmpty(t, verified.Token)

	w = app.do(t, http.MethodGet, "/api/me", verified.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &me))
	assert.Equal(t, created.ID, me.ID)
	assert.True(t, me.IsVerified)

	w = app.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"fullName": "Someone Else", "phone": "+77015554433", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func receiptForm(t *testing.T, amount string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("amount", amount))
	require.NoError(t, mw.WriteField("description", "kaspi"))
	part, err := mw.CreateFormFile("receipt", "receipt.png")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	student, studentToken := app.user(t, "+77070000001", models.RoleUser, 0)
	_, adminToken := app.user(t, "+77070000002", models.RoleAdmin, 0)

	body, contentType := receiptForm(t, "1500")
	req := httptest.NewRequest(http.MethodPost, "/api/payments", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payment models.Payment
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &payment))
	assert.Equal(t, models.PaymentWaiting, payment.Status)

	path := "/api/payments/" + fmt.Sprint(payment.ID)

	w = app.do(t, http.MethodPost, path+"/process", studentToken, gin.H{"status": "Success"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, path+"/process", adminToken, gin.H{"status": "Rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, path+"/process", adminToken, gin.H{"status": "Success"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Success", decode(t, w).ResultCode)

	w = app.do(t, http.MethodPost, path+"/process", adminToken, gin.H{"status": "Success"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AlreadySuccess", decode(t, w).ResultCode)

	w = app.do(t, http.MethodPost, "/api/payments/999/process", adminToken, gin.H{"status": "Success"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var stored models.User
	require.NoError(t, app.db.First(&stored, student.ID).Error)
	assert.Equal(t, int64(1500), stored.Balance)

	w = app.do(t, http.MethodGet, "/api/payments?pageSize=5", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page handlers.PaginatedResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &page))
	assert.Equal(t, int64(1), page.TotalRows)
	assert.Equal(t, 5, page.PageSize)

	w = app.do(t, http.MethodGet, "/api/payments/export", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodGet, "/api/payments/export?status=Success", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))

	w = app.do(t, http.MethodGet, "/api/payments?from=yesterday", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBlockedUserIsRejected(t *testing.T) {
	app := newTestApp(t)
	student, studentToken := app.user(t, "+77070000001", models.RoleUser, 0)
	_, adminToken := app.user(t, "+77070000002", models.RoleAdmin, 0)

	w := app.do(t, http.MethodPost, "/api/users/"+fmt.Sprint(student.ID)+"/block", adminToken, gin.H{"blocked": true, "reason": "fraud"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/me", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPresentationRequiresBalance(t *testing.T) {
	app := newTestApp(t)
	_, studentToken := app.user(t, "+77070000001", models.RoleUser, 100)
	_, adminToken := app.user(t, "+77070000002", models.RoleAdmin, 0)

	w := app.do(t, http.MethodPost, "/api/designs", adminToken, gin.H{"name": "Classic", "price": 0})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var design models.Design
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &design))

	w = app.do(t, http.MethodPost, "/api/designs", studentToken, gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	input := gin.H{
		"designId":  design.ID,
		"title":     "Физика",
		"pageCount": 4,
		"plan":      []string{"Механика", "Оптика"},
		"pages": []gin.H{
			{"texts": []gin.H{{"text": "Законы Ньютона"}}},
			{"texts": []gin.H{{"text": "Линзы"}}},
		},
	}
	w = app.do(t, http.MethodPost, "/api/presentations", studentToken, input)
	assert.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())

	input["pageCount"] = 5
	w = app.do(t, http.MethodPost, "/api/presentations", studentToken, input)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w).Errors)
}

func TestSuperAdminOnlyRoutes(t *testing.T) {
	app := newTestApp(t)
	student, _ := app.user(t, "+77070000001", models.RoleUser, 0)
	_, adminToken := app.user(t, "+77070000002", models.RoleAdmin, 0)
	_, rootToken := app.user(t, "+77070000003", models.RoleSuperAdmin, 0)

	w := app.do(t, http.MethodPut, "/api/users/"+fmt.Sprint(student.ID)+"/role", adminToken, gin.H{"role": "Admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPut, "/api/users/"+fmt.Sprint(student.ID)+"/role", rootToken, gin.H{"role": "Admin"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/api-keys", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, "/api/api-keys", rootToken, gin.H{"key": "AIzaSy-test-key-9999", "label": "main"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "****9999")
	assert.NotContains(t, w.Body.String(), "AIzaSy-test-key-9999")

	w = app.do(t, http.MethodGet, "/api/admin-actions?actionType=role_change", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page handlers.PaginatedResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &page))
	assert.Equal(t, int64(1), page.TotalRows)
}

package pins

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"blogpin-backend/models"
	"blogpin-backend/services"
	"blogpin-backend/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

// stubProvider satisfies the provider boundary, pin endpoints never reach it.
type stubProvider struct{}

func (stubProvider) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	return "cus_stub", nil
}

func (stubProvider) CreateCheckoutSession(ctx context.Context, params services.CheckoutParams) (*services.CheckoutSession, error) {
	return &services.CheckoutSession{ID: "cs_stub", URL: "https://checkout.example.com"}, nil
}

func (stubProvider) RetrieveSession(ctx context.Context, sessionID string) (*services.SessionInfo, error) {
	return &services.SessionInfo{}, nil
}

func (stubProvider) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reason string, metadata map[string]string) (*services.RefundResult, error) {
	return &services.RefundResult{ID: "re_stub", Status: "succeeded"}, nil
}

func setupPinTest(t *testing.T) (*gorm.DB, func()) {
	gormDB, cleanup := testutils.SetupSQLiteDB(t)
	services.Init(gormDB, stubProvider{})
	return gormDB, cleanup
}

func authRouter(userID string) *gin.Engine {
	r := testutils.SetupTestRouter()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	return r
}

func seedSubscriber(t *testing.T, gormDB *gorm.DB, email string, active bool) (*models.User, *models.Post) {
	user := &models.User{Email: email, UserName: "tester", Enable: true}
	require.NoError(t, gormDB.Create(user).Error)

	post := &models.Post{AuthorID: user.ID, Title: "Featured post", Status: models.PostPublished}
	require.NoError(t, gormDB.Create(post).Error)

	if active {
		plan := &models.SubscriptionPlan{Name: "Plan " + email, PriceCents: 1200, Currency: "usd", DurationDays: 30, IsActive: true}
		require.NoError(t, gormDB.Create(plan).Error)
		sub := &models.Subscription{
			UserID:    user.ID,
			PlanID:    plan.ID,
			Status:    models.SubscriptionActive,
			StartDate: time.Now(),
			EndDate:   time.Now().AddDate(0, 0, 30),
		}
		require.NoError(t, gormDB.Create(sub).Error)
	}
	return user, post
}

func TestPinPost_Success(t *testing.T) {
	gormDB, cleanup := setupPinTest(t)
	defer cleanup()

	user, post := seedSubscriber(t, gormDB, "pinhandler@test.com", true)

	r := authRouter(user.ID)
	r.POST("/pins", PinPost)

	body, _ := json.Marshal(map[string]string{"postId": post.ID})
	req, _ := http.NewRequest(http.MethodPost, "/pins", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)

	var pin models.PinnedPost
	json.Unmarshal(resp.Body.Bytes(), &pin)
	assert.Equal(t, post.ID, pin.PostID)
	assert.Equal(t, user.ID, pin.UserID)
}

func TestPinPost_WithoutSubscription(t *testing.T) {
	gormDB, cleanup := setupPinTest(t)
	defer cleanup()

	user, post := seedSubscriber(t, gormDB, "nosub@test.com", false)

	r := authRouter(user.ID)
	r.POST("/pins", PinPost)

	body, _ := json.Marshal(map[string]string{"postId": post.ID})
	req, _ := http.NewRequest(http.MethodPost, "/pins", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestPinPost_MissingBody(t *testing.T) {
	gormDB, cleanup := setupPinTest(t)
	defer cleanup()

	user, _ := seedSubscriber(t, gormDB, "nobody@test.com", true)

	r := authRouter(user.ID)
	r.POST("/pins", PinPost)

	req, _ := http.NewRequest(http.MethodPost, "/pins", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUnpinPost_NoPin(t *testing.T) {
	gormDB, cleanup := setupPinTest(t)
	defer cleanup()

	user, _ := seedSubscriber(t, gormDB, "unpinhandler@test.com", true)

	r := authRouter(user.ID)
	r.DELETE("/pins", UnpinPost)

	req, _ := http.NewRequest(http.MethodDelete, "/pins", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetMyPin_Flow(t *testing.T) {
	gormDB, cleanup := setupPinTest(t)
	defer cleanup()

	user, post := seedSubscriber(t, gormDB, "mypin@test.com", true)

	r := authRouter(user.ID)
	r.POST("/pins", PinPost)
	r.GET("/pins/me", GetMyPin)

	req, _ := http.NewRequest(http.MethodGet, "/pins/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	body, _ := json.Marshal(map[string]string{"postId": post.ID})
	req, _ = http.NewRequest(http.MethodPost, "/pins", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/pins/me", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)

	var pin models.PinnedPost
	json.Unmarshal(resp.Body.Bytes(), &pin)
	assert.Equal(t, post.ID, pin.PostID)
	require.NotNil(t, pin.Post)
	assert.Equal(t, "Featured post", pin.Post.Title)
}

func TestCanPinPost_Report(t *testing.T) {
	gormDB, cleanup := setupPinTest(t)
	defer cleanup()

	user, post := seedSubscriber(t, gormDB, "canpinhandler@test.com", false)

	r := authRouter(user.ID)
	r.GET("/pins/can-pin/:postId", CanPinPost)

	req, _ := http.NewRequest(http.MethodGet, "/pins/can-pin/"+post.ID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var report models.PinCapability
	json.Unmarshal(resp.Body.Bytes(), &report)
	assert.True(t, report.PostExists)
	assert.True(t, report.IsOwnPost)
	assert.False(t, report.HasSubscription)
	assert.False(t, report.CanPin)
}

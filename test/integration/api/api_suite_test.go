// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

//go:build integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/carvalue/carvalue/internal/auth"
	authpg "github.com/carvalue/carvalue/internal/auth/postgres"
	"github.com/carvalue/carvalue/internal/reports"
	reportpg "github.com/carvalue/carvalue/internal/reports/postgres"
	"github.com/carvalue/carvalue/internal/store/storetest"
	"github.com/carvalue/carvalue/internal/web"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Integration Suite")
}

// testEnv holds all resources needed for API integration tests.
type testEnv struct {
	ctx    context.Context
	db     *storetest.Database
	server *httptest.Server
}

var env *testEnv

var _ = BeforeSuite(func() {
	var err error
	env, err = setupAPITestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

var _ = BeforeEach(func() {
	Expect(env.db.Truncate(env.ctx)).To(Succeed())
})

func setupAPITestEnv() (*testEnv, error) {
	ctx := context.Background()
	gin.SetMode(gin.TestMode)

	db, err := storetest.Start(ctx)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := authpg.NewUserRepository(db.Pool)
	sessions := authpg.NewSessionRepository(db.Pool)

	authSvc, err := auth.NewService(users, sessions,
		auth.NewScryptHasher(auth.WithScryptCost(1<<4)),
		auth.WithLogger(logger),
		auth.WithSessionTTL(time.Hour),
	)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	userSvc, err := auth.NewUserService(users, sessions, authSvc)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	reportSvc, err := reports.NewService(reportpg.NewReportRepository(db.Pool), logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	router, err := web.NewRouter(web.Deps{
		Auth:    authSvc,
		Users:   userSvc,
		Reports: reportSvc,
		Logger:  logger,
	}, web.Options{HideAccountExistence: true})
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	return &testEnv{ctx: ctx, db: db, server: httptest.NewServer(router)}, nil
}

func (e *testEnv) cleanup() {
	e.server.Close()
	e.db.Close(e.ctx)
}

// browser is an HTTP client with its own cookie jar, standing in for one
// signed-in (or anonymous) user agent.
type browser struct {
	client *http.Client
}

func newBrowser() *browser {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &browser{client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (b *browser) do(method, path string, body, out any) int {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}
	return resp.StatusCode
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userBody struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type reportBody struct {
	ID       int64   `json:"id"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	Year     int     `json:"year"`
	Mileage  int     `json:"mileage"`
	Lng      float64 `json:"lng"`
	Lat      float64 `json:"lat"`
	Price    int     `json:"price"`
	Approved bool    `json:"approved"`
	UserID   int64   `json:"userId"`
}

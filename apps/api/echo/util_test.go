package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/lingora/backend/apps/api/echo"
	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
	"github.com/lingora/backend/core/schedule"
	"github.com/lingora/backend/core/staffing"
	"github.com/lingora/backend/core/user"
	emailsvc "github.com/lingora/backend/services/email"
	dummydb "github.com/lingora/backend/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app       Server
	conf      *core.Config
	usrRepo   user.Repository
	schedRepo schedule.Repository
	currRepo  curriculum.Repository
	staffRepo staffing.Repository
	store     *fakeStore
}

func setup(t *testing.T) *testEnv {
	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	schedRepo := dummydb.NewScheduleRepository(db)
	currRepo := dummydb.NewCurriculumRepository(db)
	staffRepo := dummydb.NewStaffingRepository(db)

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Grid = core.GridConfig{StartHour: 7, EndHour: 21, SlotMinutes: 30, DayCount: 7, PixelsPerSlot: 30}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	store := newFakeStore()
	schedSvc := schedule.NewService(db, schedRepo, store, schedule.NewGrid(conf.Grid))
	currSvc := curriculum.NewService(db, currRepo)
	staffSvc := staffing.NewService(staffRepo, usrSvc)

	// set up server
	app := NewServer(
		&Options{
			DisableReqLogs: true,
			Conf:           conf,
			Logger:         testLogger{},
			UserSvc:        usrSvc,
			ScheduleSvc:    schedSvc,
			CurriculumSvc:  currSvc,
			StaffingSvc:    staffSvc,
		},
	)

	return &testEnv{
		app:       app,
		conf:      conf,
		usrRepo:   usrRepo,
		schedRepo: schedRepo,
		currRepo:  currRepo,
		staffRepo: staffRepo,
		store:     store,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, level string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	active := isActive
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  &active,
		Roles:     roles,
		Level:     level,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// fakeStore is an in-memory core.ObjectStorage.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ core.ObjectStorage = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Upload(_ context.Context, objectPath string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectPath] = data
	return nil
}

func (s *fakeStore) PresignedURL(_ context.Context, objectPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[objectPath]; !ok {
		return "", fmt.Errorf("object %s not found", objectPath)
	}
	return "https://storage.local/" + objectPath, nil
}

func (s *fakeStore) Exists(_ context.Context, objectPath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[objectPath]
	return ok, nil
}

// testLogger drops everything; API tests assert on responses, not logs.
type testLogger struct{}

var _ core.Logger = (*testLogger)(nil)

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

package echoapi_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	. "github.com/lingora/backend/apps/api/echo"
	"github.com/lingora/backend/core/user"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)

	createUser(t, env.usrRepo, "Hero", "heroic", "hero@lingora.cd", "Str0ngPwd!", "A2", []string{user.RoleStudent}, true)
	createUser(t, env.usrRepo, "N Dog", "ndog01", "ndog@lingora.cd", "Str0ngPwd!", "", []string{user.RoleStudent}, false)

	body := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Empty payload", body: body("", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "Unknown user", body: body("whoami", "Str0ngPwd!"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", body: body("heroic", "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", body: body("ndog01", "Str0ngPwd!"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Login by username", body: body("heroic", "Str0ngPwd!"), wantCode: http.StatusOK},
		{name: "Login by email", body: body("hero@lingora.cd", "Str0ngPwd!"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	env := setup(t)

	path := func(search string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	student := createUser(t, env.usrRepo, "Hero", "heroic", "hero@lingora.cd", "", "A2", []string{user.RoleStudent}, true)
	admin := createUser(t, env.usrRepo, "Admin", "admin1", "admin@lingora.cd", "", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, env.usrRepo, "Teacher", "teach1", "teacher@lingora.cd", "", "", []string{user.RoleTeacher}, true)
	tutor := createUser(t, env.usrRepo, "Tutor", "tutor1", "tutor@lingora.cd", "", "", []string{user.RoleTutor}, true)
	naughty := createUser(t, env.usrRepo, "N Dog", "ndog01", "ndog@lingora.cd", "", "", []string{user.RoleStudent}, false)

	adminToken := getToken(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Staff is not admin", path: "/v1/users", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken,
			wantData: marchallList(t, student, admin, teacher, tutor, naughty),
		},
		{name: "search (unknown)", path: path("lol", nil), token: adminToken, wantData: empty},
		{name: "search=hero", path: path("hero", nil), token: adminToken, wantData: marchallList(t, student)},
		{name: "role (unknown)", path: path("", nil, "lol"), token: adminToken, wantData: empty},
		{name: "role=teacher:", path: path("", nil, user.RoleTeacher), token: adminToken, wantData: marchallList(t, teacher)},
		{
			name: "role=teacher:,tutor:", path: path("", nil, user.RoleTeacher, user.RoleTutor),
			token: adminToken, wantData: marchallList(t, teacher, tutor),
		},
		{
			name: "is_active=true", path: path("", bPtr(true)),
			token: adminToken, wantData: marchallList(t, student, admin, teacher, tutor),
		},
		{name: "is_active=false", path: path("", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQueryOrdering(t *testing.T) {
	env := setup(t)

	createUser(t, env.usrRepo, "Bob", "bob123", "bob@lingora.cd", "", "", nil, true)
	createUser(t, env.usrRepo, "alice", "alice1", "alice@lingora.cd", "", "", nil, true)
	admin := createUser(t, env.usrRepo, "Zed", "zed123", "zed@lingora.cd", "", "", []string{user.RoleAdmin}, true)

	check := func(t *testing.T, path string, wantNames ...string) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		names := make([]string, len(users))
		for i, u := range users {
			names[i] = u.Name
		}
		if len(names) != len(wantNames) {
			t.Fatalf("failed! names = %v; want %v", names, wantNames)
		}
		for i := range names {
			if names[i] != wantNames[i] {
				t.Fatalf("failed! names = %v; want %v", names, wantNames)
			}
		}
	}

	check(t, "/v1/users?ordering=name", "alice", "Bob", "Zed")
	check(t, "/v1/users?ordering=-name", "Zed", "Bob", "alice")
	check(t, "/v1/users?ordering=username", "alice", "Bob", "Zed")
}

func Test_userApi_userRegister(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "admin1", "admin@lingora.cd", "", "", []string{user.RoleAdmin}, true)
	student := createUser(t, env.usrRepo, "Hero", "heroic", "hero@lingora.cd", "", "A2", []string{user.RoleStudent}, true)

	adminToken := getToken(t, admin)
	body := func(name, uname, email, level string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        "Str0ngPwd!",
			PasswordConfirm: "Str0ngPwd!",
			Roles:           roles,
			Level:           level,
		})
	}

	tests := []httpTest{
		{name: "Auth required", body: body("New Kid", "newkid", "kid@lingora.cd", "A1"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, student), body: body("New Kid", "newkid", "kid@lingora.cd", "A1"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Student created", token: adminToken, body: body("New Kid", "newkid", "kid@lingora.cd", "A1", user.RoleStudent), wantCode: http.StatusCreated},
		{
			name: "Duplicate username", token: adminToken, body: body("Copy Cat", "newkid", "cat@lingora.cd", "A1"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "Cannot grant a higher role", token: adminToken, body: body("Boss", "bigboss", "boss@lingora.cd", "", user.RoleAdminOwner),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if usr.ID == "" || usr.Username != "newkid" || usr.Level != "A1" {
					t.Errorf("failed! unexpected user %+v", usr)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "admin1", "admin@lingora.cd", "", "", []string{user.RoleAdmin}, true)
	student := createUser(t, env.usrRepo, "Hero", "heroic", "hero@lingora.cd", "", "A2", []string{user.RoleStudent}, true)
	other := createUser(t, env.usrRepo, "Other", "other1", "other@lingora.cd", "", "B1", []string{user.RoleStudent}, true)

	adminToken := getToken(t, admin)
	studentToken := getToken(t, student)

	t.Run("retrieve self", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+student.ID, studentToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, student)}, rec)
	})

	t.Run("retrieve other is hidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, studentToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("admin retrieves anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, other)}, rec)
	})

	t.Run("self update name", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Name: "Hero Renamed"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if usr.Name != "Hero Renamed" {
			t.Errorf("failed! name = %v", usr.Name)
		}
	})

	t.Run("self cannot change roles", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("admin deletes other", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+other.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_userApi_userRefreshToken(t *testing.T) {
	env := setup(t)

	naughty := createUser(t, env.usrRepo, "N Dog", "ndog01", "ndog@lingora.cd", "", "", []string{user.RoleStudent}, false)
	student := createUser(t, env.usrRepo, "Hero", "heroic", "hero@lingora.cd", "", "A2", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    env.conf.AppName,
			Subject:   student.ID,
			Audience:  "Lingora",
			ExpiresAt: now.Add(env.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * env.conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    student.IsStudent(),
		Roles:        student.Roles,
	}
	unrefreshableToken, err := GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)

			// cannot guess the new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

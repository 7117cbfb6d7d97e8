package echoapi_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/lingora/backend/apps/api/echo"
	"github.com/lingora/backend/core/schedule"
	"github.com/lingora/backend/core/user"
)

func Test_scheduleApi_availability(t *testing.T) {
	env := setup(t)

	teacher := createUser(t, env.usrRepo, "Teacher", "teach1", "teacher@lingora.cd", "", "", []string{user.RoleTeacher}, true)
	other := createUser(t, env.usrRepo, "Tutor", "tutor1", "tutor@lingora.cd", "", "", []string{user.RoleTutor}, true)
	admin := createUser(t, env.usrRepo, "Admin", "admin1", "admin@lingora.cd", "", "", []string{user.RoleAdmin}, true)

	body := marchallObj(t, AvailabilityRequest{Slots: []schedule.Slot{
		{Day: 1, Hour: 9}, {Day: 1, Hour: 10}, {Day: 1, Hour: 11}, {Day: 3, Hour: 14},
	}})
	wantRanges := marchallList(t,
		schedule.TimeRange{Day: 1, StartTime: "09:00", EndTime: "12:00"},
		schedule.TimeRange{Day: 3, StartTime: "14:00", EndTime: "15:00"},
	)

	path := "/v1/schedule/availability/" + teacher.ID

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, path, body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("only owner or admin can edit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, other), body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("owner replaces availability", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, teacher), body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: wantRanges}, rec)
	})

	t.Run("off-grid hour rejected and stored slots survive", func(t *testing.T) {
		// hour 23 would merge into a 24:00 range no read could parse back
		badBody := marchallObj(t, AvailabilityRequest{Slots: []schedule.Slot{{Day: 1, Hour: 23}}})
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, teacher), badBody)
		env.app.ServeHTTP(rec, req)
		wantData := marchallObj(t, map[string]string{"slots": "slot (day 1, hour 23) is outside the schedule grid"})
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: wantData}, rec)

		req, rec = newAuthRequest(http.MethodGet, path+"/slots", getToken(t, teacher))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("anyone authed can view ranges", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, other))
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: wantRanges}, rec)
	})

	t.Run("expanded slots round-trip", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"/slots", getToken(t, teacher))
		env.app.ServeHTTP(rec, req)
		wantSlots := marchallList(t,
			schedule.Slot{Day: 1, Hour: 9}, schedule.Slot{Day: 1, Hour: 10},
			schedule.Slot{Day: 1, Hour: 11}, schedule.Slot{Day: 3, Hour: 14},
		)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: wantSlots}, rec)
	})

	t.Run("admin clears anyone", func(t *testing.T) {
		empty := marchallObj(t, AvailabilityRequest{Slots: []schedule.Slot{}})
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, admin), empty)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})
}

func Test_scheduleApi_events(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "admin1", "admin@lingora.cd", "", "", []string{user.RoleAdmin}, true)
	student := createUser(t, env.usrRepo, "Hero", "heroic", "hero@lingora.cd", "", "A2", []string{user.RoleStudent}, true)

	adminToken := getToken(t, admin)

	newEvent := func(day int, start, end, room string) []byte {
		return marchallObj(t, schedule.NewEvent{
			Day:       day,
			StartTime: start,
			EndTime:   end,
			Type:      schedule.EventClass,
			Title:     "Grammar",
			Level:     "A2",
			Room:      room,
		})
	}

	postJSON := func(t *testing.T, path, token string, body []byte) *httptest.ResponseRecorder {
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		env.app.ServeHTTP(rec, req)
		return rec
	}

	t.Run("admin required to create", func(t *testing.T) {
		rec := postJSON(t, "/v1/schedule/events", getToken(t, student), newEvent(1, "09:00", "10:30", "R1"))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	var created schedule.Event
	t.Run("create", func(t *testing.T) {
		rec := postJSON(t, "/v1/schedule/events", adminToken, newEvent(1, "09:00", "10:30", "R1"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
	})

	t.Run("room overlap rejected", func(t *testing.T) {
		rec := postJSON(t, "/v1/schedule/events", adminToken, newEvent(1, "10:00", "11:00", "R1"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("back-to-back allowed", func(t *testing.T) {
		rec := postJSON(t, "/v1/schedule/events", adminToken, newEvent(1, "10:30", "11:30", "R1"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid time rejected", func(t *testing.T) {
		rec := postJSON(t, "/v1/schedule/events", adminToken, newEvent(1, "9h00", "10:00", "R9"))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"start_time": "must be a valid time in HH:MM format"}),
		}, rec)
	})

	t.Run("quick create spans day range", func(t *testing.T) {
		body := marchallObj(t, schedule.QuickCreate{
			Anchor: schedule.Slot{Day: 3, Hour: 10},
			Cursor: schedule.Slot{Day: 2, Hour: 9},
			Type:   schedule.EventTutoring,
			Title:  "Conversation",
			Room:   "R2",
		})
		rec := postJSON(t, "/v1/schedule/events/quick", adminToken, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var events []schedule.Event
		if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("failed! created %d events; want 2", len(events))
		}
		for _, ev := range events {
			if ev.StartTime != "09:00" || ev.EndTime != "11:00" {
				t.Errorf("failed! event span = %s-%s; want 09:00-11:00", ev.StartTime, ev.EndTime)
			}
		}
	})

	t.Run("quick create rejects off-grid corners", func(t *testing.T) {
		body := marchallObj(t, schedule.QuickCreate{
			Anchor: schedule.Slot{Day: 2, Hour: 30},
			Cursor: schedule.Slot{Day: 2, Hour: 9},
			Type:   schedule.EventTutoring,
			Title:  "Conversation",
		})
		rec := postJSON(t, "/v1/schedule/events/quick", adminToken, body)
		wantData := marchallObj(t, map[string]string{"anchor": "slot (day 2, hour 30) is outside the schedule grid"})
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: wantData}, rec)
	})

	t.Run("layouts carry pixel offsets", func(t *testing.T) {
		day := 1
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule/events/layouts?day_of_week=1", getToken(t, student))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var layouts []schedule.EventLayout
		if err := json.Unmarshal(rec.Body.Bytes(), &layouts); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(layouts) != 2 {
			t.Fatalf("failed! got %d layouts; want 2", len(layouts))
		}
		for _, l := range layouts {
			if l.Event.Day != day {
				t.Errorf("failed! day = %d; want %d", l.Event.Day, day)
			}
		}
		// grid starts at 07:00 with 30px half-hour rows
		if layouts[0].TopOffset != 120 || layouts[0].Height != 90 {
			t.Errorf("failed! layout = %d/%d; want 120/90", layouts[0].TopOffset, layouts[0].Height)
		}
	})

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"title": "Grammar II"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/schedule/events/"+created.ID, adminToken, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var ev schedule.Event
		if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if ev.Title != "Grammar II" {
			t.Errorf("failed! title = %v", ev.Title)
		}
	})

	t.Run("unknown event is 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule/events/nope", adminToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})
}

func Test_scheduleApi_attachment(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "admin1", "admin@lingora.cd", "", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, env.usrRepo, "Teacher", "teach1", "teacher@lingora.cd", "", "", []string{user.RoleTeacher}, true)
	adminToken := getToken(t, admin)

	// seed an event
	body := marchallObj(t, schedule.NewEvent{
		Day: 2, StartTime: "09:00", EndTime: "10:00", Type: schedule.EventClass, Title: "Reading",
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/schedule/events", adminToken, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding event failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var ev schedule.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}

	t.Run("no attachment is 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule/events/"+ev.ID+"/attachment", adminToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("staff uploads", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "worksheet.pdf")
		if err != nil {
			t.Fatalf("CreateFormFile(): %v", err)
		}
		if _, err = fw.Write([]byte("%PDF-1.4 fake")); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/v1/schedule/events/"+ev.ID+"/attachment", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+getToken(t, teacher))
		rec := httptest.NewRecorder()
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var updated schedule.Event
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !updated.Attachment.Valid {
			t.Error("failed! attachment not set")
		}
	})

	t.Run("download URL", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule/events/"+ev.ID+"/attachment", adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp AttachmentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if resp.URL == "" {
			t.Error("failed! empty URL")
		}
	})
}

func Test_scheduleApi_assignments(t *testing.T) {
	env := setup(t)

	admin := createUser(t, env.usrRepo, "Admin", "admin1", "admin@lingora.cd", "", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, env.usrRepo, "Teacher", "teach1", "teacher@lingora.cd", "", "", []string{user.RoleTeacher}, true)
	student := createUser(t, env.usrRepo, "Hero", "heroic", "hero@lingora.cd", "", "A2", []string{user.RoleStudent}, true)
	adminToken := getToken(t, admin)

	// seed an event
	body := marchallObj(t, schedule.NewEvent{
		Day: 4, StartTime: "14:00", EndTime: "15:00", Type: schedule.EventClass, Title: "Writing",
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/schedule/events", adminToken, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding event failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var ev schedule.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}

	var asg schedule.Assignment
	t.Run("assign", func(t *testing.T) {
		body := marchallObj(t, schedule.NewAssignment{StudentID: student.ID, EventID: ev.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/schedule/assignments", adminToken, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &asg); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !asg.IsActive {
			t.Error("failed! new assignment not active")
		}
	})

	t.Run("students cannot list assignments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule/assignments", getToken(t, student))
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("deactivate keeps history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/schedule/assignments/"+asg.ID+"/deactivate", adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/schedule/assignments?student_id="+student.ID, getToken(t, teacher))
		env.app.ServeHTTP(rec, req)
		var assignments []schedule.Assignment
		if err := json.Unmarshal(rec.Body.Bytes(), &assignments); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(assignments) != 1 || assignments[0].IsActive {
			t.Errorf("failed! assignments = %+v", assignments)
		}
	})

	t.Run("reactivate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/schedule/assignments/"+asg.ID+"/reactivate", adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got schedule.Assignment
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !got.IsActive {
			t.Error("failed! assignment still inactive")
		}
	})
}

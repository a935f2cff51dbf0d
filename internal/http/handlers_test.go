package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func do(env *testEnv, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	env.Router.ServeHTTP(w, req)
	return w
}

func parse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json body %q: %v", w.Body.String(), err)
	}
	return out
}

func Test_Register_Verify_SignIn(t *testing.T) {
	env := newTestEnv(t)

	// register
	w := do(env, "POST", "/api/register",
		`{"first_name":"A","last_name":"B","email":"a@x.com","password":"pw123"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register code=%d body=%s", w.Code, w.Body.String())
	}
	body := parse(t, w)
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID response header")
	}
	user, _ := body["user"].(map[string]any)
	if user == nil || user["verified"] != false {
		t.Fatalf("expected unverified user in payload, got %s", w.Body.String())
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash leaked in register response")
	}

	// wrong otp
	w = do(env, "POST", "/api/verify-otp", `{"email":"a@x.com","otp":"999999x"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong otp code=%d body=%s", w.Code, w.Body.String())
	}

	// correct otp
	w = do(env, "POST", "/api/verify-otp",
		`{"email":"a@x.com","otp":"`+env.Mailer.verifyCode()+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify code=%d body=%s", w.Code, w.Body.String())
	}

	// verifying again: already verified
	w = do(env, "POST", "/api/verify-otp",
		`{"email":"a@x.com","otp":"`+env.Mailer.verifyCode()+`"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("re-verify code=%d body=%s", w.Code, w.Body.String())
	}

	// signin
	w = do(env, "POST", "/api/signin", `{"email":"a@x.com","password":"pw123"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signin code=%d body=%s", w.Code, w.Body.String())
	}
	body = parse(t, w)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("no token in signin response: %s", w.Body.String())
	}

	// wrong password vs unknown email: identical envelope
	w1 := do(env, "POST", "/api/signin", `{"email":"a@x.com","password":"wrong"}`, nil)
	w2 := do(env, "POST", "/api/signin", `{"email":"ghost@x.com","password":"pw123"}`, nil)
	if w1.Code != http.StatusUnauthorized || w2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", w1.Code, w2.Code)
	}
	if w1.Body.String() != w2.Body.String() {
		t.Fatalf("enumeration leak: %s vs %s", w1.Body.String(), w2.Body.String())
	}

	// me
	w = do(env, "GET", "/api/me", "", map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("me code=%d body=%s", w.Code, w.Body.String())
	}
	w = do(env, "GET", "/api/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me without token code=%d", w.Code)
	}
}

func Test_Register_Validation_And_Duplicate(t *testing.T) {
	env := newTestEnv(t)

	w := do(env, "POST", "/api/register", `{"first_name":"A"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields code=%d", w.Code)
	}

	w = do(env, "POST", "/api/register",
		`{"first_name":"A","last_name":"B","email":"a@x.com","password":"pw123"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register code=%d body=%s", w.Code, w.Body.String())
	}

	// same unverified email: resend path, 200 and no second user payload
	w = do(env, "POST", "/api/register",
		`{"first_name":"A","last_name":"B","email":"a@x.com","password":"pw999"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("re-register code=%d body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), `"user"`) {
		t.Fatalf("resend path must not return a user: %s", w.Body.String())
	}

	// verified email: conflict
	do(env, "POST", "/api/verify-otp",
		`{"email":"a@x.com","otp":"`+env.Mailer.verifyCode()+`"}`, nil)
	w = do(env, "POST", "/api/register",
		`{"first_name":"A","last_name":"B","email":"a@x.com","password":"pw123"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register code=%d body=%s", w.Code, w.Body.String())
	}
}

func Test_ForgotReset_Flow(t *testing.T) {
	env := newTestEnv(t)

	do(env, "POST", "/api/register",
		`{"first_name":"A","last_name":"B","email":"a@x.com","password":"old-pw"}`, nil)

	w := do(env, "POST", "/api/forgot-password", `{"email":"ghost@x.com"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("forgot unknown code=%d", w.Code)
	}

	w = do(env, "POST", "/api/forgot-password", `{"email":"a@x.com"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("forgot code=%d body=%s", w.Code, w.Body.String())
	}

	w = do(env, "POST", "/api/reset-password",
		`{"email":"a@x.com","otp":"bad-code","new_password":"new-pw"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reset wrong otp code=%d", w.Code)
	}

	w = do(env, "POST", "/api/reset-password",
		`{"email":"a@x.com","otp":"`+env.Mailer.resetCode()+`","new_password":"new-pw"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset code=%d body=%s", w.Code, w.Body.String())
	}

	w = do(env, "POST", "/api/signin", `{"email":"a@x.com","password":"old-pw"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password still works: %d", w.Code)
	}
	w = do(env, "POST", "/api/signin", `{"email":"a@x.com","password":"new-pw"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("new password signin code=%d body=%s", w.Code, w.Body.String())
	}
}

func Test_Users_CRUD(t *testing.T) {
	env := newTestEnv(t)

	w := do(env, "POST", "/api/register",
		`{"first_name":"A","last_name":"B","email":"a@x.com","password":"pw"}`, nil)
	regUser, _ := parse(t, w)["user"].(map[string]any)
	if regUser == nil {
		t.Fatalf("no user in register response: %s", w.Body.String())
	}
	id, _ := regUser["id"].(string)
	if id == "" {
		t.Fatalf("no user id in register response: %s", w.Body.String())
	}
	do(env, "POST", "/api/register",
		`{"first_name":"C","last_name":"D","email":"c@x.com","password":"pw"}`, nil)

	// list: two users, hashes redacted
	w = do(env, "GET", "/api/users", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list code=%d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password_hash") ||
		strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("credential material leaked: %s", w.Body.String())
	}
	users, _ := parse(t, w)["users"].([]any)
	if len(users) != 2 {
		t.Fatalf("want 2 users, got %d", len(users))
	}

	// update: partial fields
	w = do(env, "PUT", "/api/users/"+id, `{"first_name":"Anna"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update code=%d body=%s", w.Code, w.Body.String())
	}
	u, _ := parse(t, w)["user"].(map[string]any)
	if u["first_name"] != "Anna" || u["last_name"] != "B" {
		t.Fatalf("partial update wrong: %s", w.Body.String())
	}

	// update: email collision
	w = do(env, "PUT", "/api/users/"+id, `{"email":"c@x.com"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("email collision code=%d body=%s", w.Code, w.Body.String())
	}

	// delete
	w = do(env, "DELETE", "/api/users/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete code=%d body=%s", w.Code, w.Body.String())
	}
	w = do(env, "DELETE", "/api/users/"+id, "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("re-delete code=%d", w.Code)
	}
	w = do(env, "PUT", "/api/users/"+id, `{"first_name":"X"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("update deleted code=%d", w.Code)
	}
}

func Test_Register_MailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.Mailer.fail = true

	w := do(env, "POST", "/api/register",
		`{"first_name":"A","last_name":"B","email":"a@x.com","password":"pw"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("mail failure code=%d body=%s", w.Code, w.Body.String())
	}
	// nothing persisted: a later register starts clean
	env.Mailer.fail = false
	w = do(env, "POST", "/api/register",
		`{"first_name":"A","last_name":"B","email":"a@x.com","password":"pw"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register after failure code=%d body=%s", w.Code, w.Body.String())
	}
}

func Test_Healthz(t *testing.T) {
	env := newTestEnv(t)

	w := do(env, "GET", "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz code=%d", w.Code)
	}

	env.Store.down = true
	w = do(env, "GET", "/healthz", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded healthz code=%d", w.Code)
	}
}

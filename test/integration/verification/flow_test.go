// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

//go:build integration

package verification_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/verifid/verifid/internal/auth"
)

type response struct {
	status int
	body   map[string]any
}

func post(path string, payload any) response {
	GinkgoHelper()
	data, err := json.Marshal(payload)
	Expect(err).NotTo(HaveOccurred())
	resp, err := http.Post(env.server.URL+path, "application/json", strings.NewReader(string(data))) //nolint:noctx,gosec // test request
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	out := response{status: resp.StatusCode, body: map[string]any{}}
	Expect(json.NewDecoder(resp.Body).Decode(&out.body)).To(Succeed())
	return out
}

func register(email, phone string) response {
	GinkgoHelper()
	payload := map[string]any{
		"email":     email,
		"password":  "correct-horse",
		"firstName": "Ada",
		"lastName":  "Lovelace",
	}
	if phone != "" {
		payload["phoneNumber"] = phone
	}
	return post("/authentication/register", payload)
}

func userID(email string) int64 {
	GinkgoHelper()
	profile, err := env.store.FindByEmail(env.ctx, email)
	Expect(err).NotTo(HaveOccurred())
	Expect(profile).NotTo(BeNil())
	return profile.UserID
}

var _ = Describe("Email verification", Ordered, func() {
	const email = "ada@example.com"

	It("registers an unverified account and sends a code", func() {
		resp := register(email, "+44 20 7946 0000")
		Expect(resp.status).To(Equal(http.StatusCreated))
		Expect(resp.body["message"]).To(Equal(auth.RegisterMessage))
		Expect(env.outbox.code(email)).To(HaveLen(auth.CodeLength))

		profile, err := env.store.FindByEmail(env.ctx, email)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile.EmailVerified).To(BeFalse())
		Expect(profile.AccountActive).To(BeFalse())
		Expect(profile.EmailResendCount).To(Equal(1))
	})

	It("rejects duplicate email and phone without leaving a user behind", func() {
		Expect(register(strings.ToUpper(email), "").status).To(Equal(http.StatusConflict))
		Expect(register("other@example.com", "+44 20 7946 0000").status).To(Equal(http.StatusConflict))

		var users int
		Expect(env.pool.QueryRow(env.ctx, "SELECT count(*) FROM users").Scan(&users)).To(Succeed())
		Expect(users).To(Equal(1))
	})

	It("refuses login until the email is verified", func() {
		resp := post("/authentication/login", map[string]any{"email": email, "password": "correct-horse"})
		Expect(resp.status).To(Equal(http.StatusForbidden))
	})

	It("resends codes until the quota is spent", func() {
		previous := env.outbox.code(email)
		for range auth.DefaultMaxResends - 1 {
			Expect(post("/email/resend-email", map[string]any{"email": email}).status).To(Equal(http.StatusOK))
			Expect(env.outbox.code(email)).NotTo(Equal(previous))
			previous = env.outbox.code(email)
		}
		resp := post("/email/resend-email", map[string]any{"email": email})
		Expect(resp.status).To(Equal(http.StatusConflict))
	})

	It("resets spent quotas on request", func() {
		n, err := env.store.ResetResendCounts(env.ctx, time.Now().Add(time.Minute), time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeEquivalentTo(1))
		Expect(post("/email/resend-email", map[string]any{"email": email}).status).To(Equal(http.StatusOK))
	})

	It("rejects a wrong code and accepts the latest one", func() {
		id := userID(email)
		wrong := "000000"
		if env.outbox.code(email) == wrong {
			wrong = "111111"
		}
		resp := post("/email/verification-email", map[string]any{"userId": id, "code": wrong})
		Expect(resp.status).To(Equal(http.StatusConflict))

		code := strings.ToLower(env.outbox.code(email))
		resp = post("/email/verification-email", map[string]any{"userId": id, "code": " " + code + " "})
		Expect(resp.status).To(Equal(http.StatusOK), fmt.Sprint(resp.body))

		profile, err := env.store.FindByUserID(env.ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile.EmailVerified).To(BeTrue())
		Expect(profile.AccountActive).To(BeTrue())
	})

	It("logs in and records a hashed session", func() {
		resp := post("/authentication/login", map[string]any{"email": email, "password": "correct-horse"})
		Expect(resp.status).To(Equal(http.StatusOK))
		accessToken, ok := resp.body["access_token"].(string)
		Expect(ok).To(BeTrue())
		Expect(accessToken).NotTo(BeEmpty())

		var stored string
		Expect(env.pool.QueryRow(env.ctx,
			"SELECT token_hash FROM sessions WHERE user_id = $1", userID(email)).Scan(&stored)).To(Succeed())
		Expect(stored).To(Equal(auth.HashSessionToken(accessToken)))

		profile, err := env.store.FindByEmail(env.ctx, email)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile.Online).To(BeTrue())
	})

	It("rejects further verification and resends", func() {
		Expect(post("/email/resend-email", map[string]any{"email": email}).status).To(Equal(http.StatusConflict))
		resp := post("/email/verification-email", map[string]any{"userId": userID(email), "code": "ABC123"})
		Expect(resp.status).To(Equal(http.StatusConflict))
	})

	It("reports unknown users", func() {
		Expect(post("/email/send-email", map[string]any{"email": "ghost@example.com"}).status).To(Equal(http.StatusNotFound))
		Expect(post("/email/verification-email", map[string]any{"userId": 424242, "code": "ABC123"}).status).To(Equal(http.StatusNotFound))
		Expect(post("/authentication/login", map[string]any{"email": "ghost@example.com", "password": "whatever"}).status).
			To(Equal(http.StatusUnauthorized))
	})
})

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

//go:build integration

package account_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Account Lifecycle", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupAccounts(ctx, env.pool)
		env.dispatcher.reset()
	})

	Describe("Registration", func() {
		It("registers a resident and returns the account ID", func() {
			status, body := postJSON("/api/mobile/register", map[string]any{
				"name":     "Ada Lovelace",
				"email":    "ada@example.com",
				"password": "correct horse",
				"address":  "12 Tower Rd",
				"contact":  "+62-811-000-111",
			})

			Expect(status).To(Equal(http.StatusCreated))
			Expect(body["status"]).To(Equal("success"))
			Expect(body["account_id"]).To(HavePrefix("USR-"))
		})

		It("rejects a duplicate email with a conflict", func() {
			payload := map[string]any{
				"name":     "Ada Lovelace",
				"email":    "ada@example.com",
				"password": "correct horse",
			}
			status, _ := postJSON("/api/mobile/register", payload)
			Expect(status).To(Equal(http.StatusCreated))

			status, body := postJSON("/api/mobile/register", payload)
			Expect(status).To(Equal(http.StatusConflict))
			Expect(body["status"]).To(Equal("error"))
		})

		It("rejects missing required fields", func() {
			status, body := postJSON("/api/mobile/register", map[string]any{
				"email": "ada@example.com",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["status"]).To(Equal("error"))
		})

		It("admits exactly one of two concurrent registrations for the same email", func() {
			email := uniqueEmail("race")
			const attempts = 8

			var wg sync.WaitGroup
			results := make(chan int, attempts)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					status, _ := postJSON("/api/mobile/register", map[string]any{
						"name":     "Racer",
						"email":    email,
						"password": "pw123456",
					})
					results <- status
				}()
			}
			wg.Wait()
			close(results)

			created, conflicts := 0, 0
			for status := range results {
				switch status {
				case http.StatusCreated:
					created++
				case http.StatusConflict:
					conflicts++
				}
			}
			Expect(created).To(Equal(1))
			Expect(conflicts).To(Equal(attempts - 1))
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			status, _ := postJSON("/api/mobile/register", map[string]any{
				"name":     "Ada Lovelace",
				"email":    "ada@example.com",
				"password": "correct horse",
			})
			Expect(status).To(Equal(http.StatusCreated))
		})

		It("returns the account profile without the password hash", func() {
			status, body := postJSON("/api/mobile/login", map[string]any{
				"email":    "ada@example.com",
				"password": "correct horse",
			})

			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("success"))

			user, ok := body["user"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(user["email"]).To(Equal("ada@example.com"))
			Expect(user).NotTo(HaveKey("password_hash"))
			Expect(user).NotTo(HaveKey("password"))
		})

		It("answers unknown email and wrong password identically", func() {
			statusUnknown, bodyUnknown := postJSON("/api/mobile/login", map[string]any{
				"email":    "nobody@example.com",
				"password": "correct horse",
			})
			statusWrong, bodyWrong := postJSON("/api/mobile/login", map[string]any{
				"email":    "ada@example.com",
				"password": "wrong horse",
			})

			Expect(statusUnknown).To(Equal(http.StatusUnauthorized))
			Expect(statusWrong).To(Equal(http.StatusUnauthorized))
			Expect(bodyUnknown["message"]).To(Equal(bodyWrong["message"]))
		})
	})

	Describe("Change password", func() {
		var accountID string

		BeforeEach(func() {
			status, body := postJSON("/api/mobile/register", map[string]any{
				"name":     "Ada Lovelace",
				"email":    "ada@example.com",
				"password": "old password",
			})
			Expect(status).To(Equal(http.StatusCreated))
			accountID = body["account_id"].(string)
		})

		It("replaces the password after verifying the current one", func() {
			status, _ := postJSON("/api/mobile/change-password", map[string]any{
				"account_id":       accountID,
				"current_password": "old password",
				"new_password":     "new password",
			})
			Expect(status).To(Equal(http.StatusOK))

			status, _ = postJSON("/api/mobile/login", map[string]any{
				"email":    "ada@example.com",
				"password": "old password",
			})
			Expect(status).To(Equal(http.StatusUnauthorized))

			status, _ = postJSON("/api/mobile/login", map[string]any{
				"email":    "ada@example.com",
				"password": "new password",
			})
			Expect(status).To(Equal(http.StatusOK))
		})

		It("keeps the old password when the current password is wrong", func() {
			status, _ := postJSON("/api/mobile/change-password", map[string]any{
				"account_id":       accountID,
				"current_password": "bad guess",
				"new_password":     "new password",
			})
			Expect(status).To(Equal(http.StatusUnauthorized))

			status, _ = postJSON("/api/mobile/login", map[string]any{
				"email":    "ada@example.com",
				"password": "old password",
			})
			Expect(status).To(Equal(http.StatusOK))
		})

		It("returns not found for an unknown account", func() {
			status, _ := postJSON("/api/mobile/change-password", map[string]any{
				"account_id":       "USR-00000000000000000000000000",
				"current_password": "old password",
				"new_password":     "new password",
			})
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Password reset", func() {
		BeforeEach(func() {
			status, _ := postJSON("/api/mobile/register", map[string]any{
				"name":     "Ada Lovelace",
				"email":    "ada@example.com",
				"password": "old password",
			})
			Expect(status).To(Equal(http.StatusCreated))
		})

		// tokenFromMail waits for the async dispatch and extracts the token
		// from the reset link.
		tokenFromMail := func() string {
			GinkgoHelper()
			var link string
			Eventually(func() int {
				mails := env.dispatcher.mails()
				if len(mails) > 0 {
					link = mails[len(mails)-1].Link
				}
				return len(mails)
			}, 5*time.Second, 50*time.Millisecond).Should(BeNumerically(">", 0))

			u, err := url.Parse(link)
			Expect(err).NotTo(HaveOccurred())
			token := u.Query().Get("token")
			Expect(token).NotTo(BeEmpty())
			return token
		}

		It("answers forgot-password uniformly for known and unknown emails", func() {
			statusKnown, bodyKnown := postJSON("/api/mobile/forgot-password", map[string]any{
				"email": "ada@example.com",
			})
			statusUnknown, bodyUnknown := postJSON("/api/mobile/forgot-password", map[string]any{
				"email": "nobody@example.com",
			})

			Expect(statusKnown).To(Equal(http.StatusOK))
			Expect(statusUnknown).To(Equal(http.StatusOK))
			Expect(bodyKnown["message"]).To(Equal(bodyUnknown["message"]))
		})

		It("does not email unknown addresses", func() {
			status, _ := postJSON("/api/mobile/forgot-password", map[string]any{
				"email": "nobody@example.com",
			})
			Expect(status).To(Equal(http.StatusOK))

			Consistently(func() int {
				return len(env.dispatcher.mails())
			}, 500*time.Millisecond, 50*time.Millisecond).Should(BeZero())
		})

		It("resets the password with an emailed token exactly once", func() {
			status, _ := postJSON("/api/mobile/forgot-password", map[string]any{
				"email": "ada@example.com",
			})
			Expect(status).To(Equal(http.StatusOK))

			token := tokenFromMail()
			Expect(token).To(HaveLen(64))
			Expect(strings.ToLower(token)).To(Equal(token))

			status, _ = postJSON("/api/mobile/reset-password", map[string]any{
				"token":        token,
				"new_password": "brand new password",
			})
			Expect(status).To(Equal(http.StatusOK))

			status, _ = postJSON("/api/mobile/login", map[string]any{
				"email":    "ada@example.com",
				"password": "brand new password",
			})
			Expect(status).To(Equal(http.StatusOK))

			// The token was consumed; replaying it must fail.
			status, _ = postJSON("/api/mobile/reset-password", map[string]any{
				"token":        token,
				"new_password": "yet another password",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("invalidates an earlier token when a new one is requested", func() {
			status, _ := postJSON("/api/mobile/forgot-password", map[string]any{
				"email": "ada@example.com",
			})
			Expect(status).To(Equal(http.StatusOK))
			firstToken := tokenFromMail()

			env.dispatcher.reset()
			status, _ = postJSON("/api/mobile/forgot-password", map[string]any{
				"email": "ada@example.com",
			})
			Expect(status).To(Equal(http.StatusOK))
			secondToken := tokenFromMail()
			Expect(secondToken).NotTo(Equal(firstToken))

			status, _ = postJSON("/api/mobile/reset-password", map[string]any{
				"token":        firstToken,
				"new_password": "should not work",
			})
			Expect(status).To(Equal(http.StatusBadRequest))

			status, _ = postJSON("/api/mobile/reset-password", map[string]any{
				"token":        secondToken,
				"new_password": "new password",
			})
			Expect(status).To(Equal(http.StatusOK))
		})

		It("rejects garbage tokens", func() {
			status, body := postJSON("/api/mobile/reset-password", map[string]any{
				"token":        "not-a-real-token",
				"new_password": "new password",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["status"]).To(Equal("error"))
		})
	})
})

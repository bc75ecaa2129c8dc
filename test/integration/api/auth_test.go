// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

//go:build integration

package api_test

import (
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Authentication", func() {
	var alice *browser

	BeforeEach(func() {
		alice = newBrowser()
	})

	It("signs up and reports the current user from the session cookie", func() {
		var created userBody
		Expect(alice.do(http.MethodPost, "/auth/signup", credentials{"alice@example.com", "s3cret"}, &created)).
			To(Equal(http.StatusCreated))
		Expect(created.ID).To(BeNumerically(">", 0))

		var me userBody
		Expect(alice.do(http.MethodGet, "/auth/currentUser", nil, &me)).To(Equal(http.StatusOK))
		Expect(me).To(Equal(created))
	})

	It("rejects a second signup with the same email", func() {
		Expect(alice.do(http.MethodPost, "/auth/signup", credentials{"dup@example.com", "pw"}, nil)).
			To(Equal(http.StatusCreated))
		Expect(newBrowser().do(http.MethodPost, "/auth/signup", credentials{"dup@example.com", "other"}, nil)).
			To(Equal(http.StatusBadRequest))
	})

	It("signs out and stops recognising the old session", func() {
		Expect(alice.do(http.MethodPost, "/auth/signup", credentials{"bye@example.com", "pw"}, nil)).
			To(Equal(http.StatusCreated))
		Expect(alice.do(http.MethodPost, "/auth/signout", nil, nil)).To(Equal(http.StatusNoContent))
		Expect(alice.do(http.MethodGet, "/auth/currentUser", nil, nil)).To(Equal(http.StatusUnauthorized))
	})

	It("signs in with the right password only", func() {
		Expect(alice.do(http.MethodPost, "/auth/signup", credentials{"pw@example.com", "right"}, nil)).
			To(Equal(http.StatusCreated))

		other := newBrowser()
		Expect(other.do(http.MethodPost, "/auth/signin", credentials{"pw@example.com", "wrong"}, nil)).
			To(Equal(http.StatusBadRequest))
		Expect(other.do(http.MethodPost, "/auth/signin", credentials{"nobody@example.com", "right"}, nil)).
			To(Equal(http.StatusBadRequest))

		var me userBody
		Expect(other.do(http.MethodPost, "/auth/signin", credentials{"pw@example.com", "right"}, nil)).
			To(Equal(http.StatusOK))
		Expect(other.do(http.MethodGet, "/auth/currentUser", nil, &me)).To(Equal(http.StatusOK))
		Expect(me.Email).To(Equal("pw@example.com"))
	})

	It("lets a user change their password and revokes existing sessions", func() {
		var me userBody
		Expect(alice.do(http.MethodPost, "/auth/signup", credentials{"change@example.com", "old"}, &me)).
			To(Equal(http.StatusCreated))

		phone := newBrowser()
		Expect(phone.do(http.MethodPost, "/auth/signin", credentials{"change@example.com", "old"}, nil)).
			To(Equal(http.StatusOK))

		Expect(alice.do(http.MethodPatch, fmt.Sprintf("/auth/%d", me.ID), map[string]string{"password": "new"}, nil)).
			To(Equal(http.StatusOK))
		Expect(phone.do(http.MethodGet, "/auth/currentUser", nil, nil)).To(Equal(http.StatusUnauthorized))

		Expect(newBrowser().do(http.MethodPost, "/auth/signin", credentials{"change@example.com", "new"}, nil)).
			To(Equal(http.StatusOK))
	})
})

var _ = Describe("User directory", func() {
	It("finds users by id and by email", func() {
		alice := newBrowser()
		var created userBody
		Expect(alice.do(http.MethodPost, "/auth/signup", credentials{"find@example.com", "pw"}, &created)).
			To(Equal(http.StatusCreated))

		anon := newBrowser()
		var byID userBody
		Expect(anon.do(http.MethodGet, fmt.Sprintf("/auth/%d", created.ID), nil, &byID)).To(Equal(http.StatusOK))
		Expect(byID).To(Equal(created))

		var byEmail []userBody
		Expect(anon.do(http.MethodGet, "/auth?email=find@example.com", nil, &byEmail)).To(Equal(http.StatusOK))
		Expect(byEmail).To(ConsistOf(created))

		Expect(anon.do(http.MethodGet, "/auth/999999", nil, nil)).To(Equal(http.StatusNotFound))
	})

	It("only lets a user remove their own account", func() {
		alice, bob := newBrowser(), newBrowser()
		var a, b userBody
		Expect(alice.do(http.MethodPost, "/auth/signup", credentials{"a@example.com", "pw"}, &a)).To(Equal(http.StatusCreated))
		Expect(bob.do(http.MethodPost, "/auth/signup", credentials{"b@example.com", "pw"}, &b)).To(Equal(http.StatusCreated))

		Expect(bob.do(http.MethodDelete, fmt.Sprintf("/auth/%d", a.ID), nil, nil)).To(Equal(http.StatusForbidden))
		Expect(alice.do(http.MethodDelete, fmt.Sprintf("/auth/%d", a.ID), nil, nil)).To(Equal(http.StatusOK))
		Expect(newBrowser().do(http.MethodGet, fmt.Sprintf("/auth/%d", a.ID), nil, nil)).To(Equal(http.StatusNotFound))
	})
})

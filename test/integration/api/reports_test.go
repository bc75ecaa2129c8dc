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

var _ = Describe("Reports", func() {
	var (
		seller *browser
		owner  userBody
	)

	civic := map[string]any{
		"make": "Honda", "model": "Civic", "year": 2015, "mileage": 80000,
		"lng": -122.4, "lat": 37.7, "price": 9500,
	}

	BeforeEach(func() {
		seller = newBrowser()
		Expect(seller.do(http.MethodPost, "/auth/signup", credentials{"seller@example.com", "pw"}, &owner)).
			To(Equal(http.StatusCreated))
	})

	It("creates an unapproved report owned by the signed-in user", func() {
		var report reportBody
		Expect(seller.do(http.MethodPost, "/reports", civic, &report)).To(Equal(http.StatusCreated))

		Expect(report.ID).To(BeNumerically(">", 0))
		Expect(report.Make).To(Equal("Honda"))
		Expect(report.Approved).To(BeFalse())
		Expect(report.UserID).To(Equal(owner.ID))
	})

	It("requires a session to create a report", func() {
		Expect(newBrowser().do(http.MethodPost, "/reports", civic, nil)).To(Equal(http.StatusUnauthorized))
	})

	It("rejects out-of-range attributes", func() {
		bad := map[string]any{"make": "Ford", "model": "T", "year": 1900, "mileage": 10, "lng": 0, "lat": 0, "price": 100}
		Expect(seller.do(http.MethodPost, "/reports", bad, nil)).To(Equal(http.StatusBadRequest))
	})

	It("approves and reads back a report", func() {
		var report reportBody
		Expect(seller.do(http.MethodPost, "/reports", civic, &report)).To(Equal(http.StatusCreated))

		var approved reportBody
		path := fmt.Sprintf("/reports/%d", report.ID)
		Expect(seller.do(http.MethodPatch, path, map[string]bool{"approved": true}, &approved)).To(Equal(http.StatusOK))
		Expect(approved.Approved).To(BeTrue())

		var fetched reportBody
		Expect(newBrowser().do(http.MethodGet, path, nil, &fetched)).To(Equal(http.StatusOK))
		Expect(fetched).To(Equal(approved))
	})

	It("returns 404 for an unknown report", func() {
		Expect(seller.do(http.MethodPatch, "/reports/424242", map[string]bool{"approved": true}, nil)).
			To(Equal(http.StatusNotFound))
	})
})

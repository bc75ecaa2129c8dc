// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package web

import (
	"github.com/carvalue/carvalue/internal/auth"
	"github.com/carvalue/carvalue/internal/reports"
)

// UserView is the public projection of a user. The credential never leaves
// the server.
type UserView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ReportView is the public projection of a report.
type ReportView struct {
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

func userView(u *auth.User) UserView {
	return UserView{ID: u.ID, Email: u.Email}
}

func userViews(users []*auth.User) []UserView {
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}
	return views
}

func reportView(r *reports.Report) ReportView {
	return ReportView{
		ID:       r.ID,
		Make:     r.Make,
		Model:    r.Model,
		Year:     r.Year,
		Mileage:  r.Mileage,
		Lng:      r.Lng,
		Lat:      r.Lat,
		Price:    r.Price,
		Approved: r.Approved,
		UserID:   r.UserID,
	}
}

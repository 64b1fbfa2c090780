package domain

import (
	"strings"
	"time"
)

// Gender of a pilgrim. Empty means unknown.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Valid reports whether g is empty or one of the known values.
func (g Gender) Valid() bool {
	return g == "" || g == GenderMale || g == GenderFemale
}

// Client is a pilgrim record shared by invoicing and rooming.
type Client struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	PassportNumber string    `json:"passportNumber,omitempty"`
	Gender         Gender    `json:"gender,omitempty"`
	DateOfBirth    string    `json:"dateOfBirth,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ClientPatch carries a partial client update. Nil fields are left untouched.
type ClientPatch struct {
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Address        *string `json:"address,omitempty"`
	PassportNumber *string `json:"passportNumber,omitempty"`
	Gender         *Gender `json:"gender,omitempty"`
	DateOfBirth    *string `json:"dateOfBirth,omitempty"`
}

// Apply returns a copy of c with the non-nil patch fields set.
func (p ClientPatch) Apply(c Client) Client {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.PassportNumber != nil {
		c.PassportNumber = *p.PassportNumber
	}
	if p.Gender != nil {
		c.Gender = *p.Gender
	}
	if p.DateOfBirth != nil {
		c.DateOfBirth = *p.DateOfBirth
	}
	return c
}

// Empty reports whether the patch changes nothing.
func (p ClientPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Address == nil &&
		p.PassportNumber == nil && p.Gender == nil && p.DateOfBirth == nil
}

// PlaceholderEmail derives a stand-in address for clients registered without
// one: the lowercased name with whitespace runs turned into dots.
func PlaceholderEmail(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ".")) + "@example.com"
}

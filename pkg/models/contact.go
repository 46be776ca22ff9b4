package models

import (
	"errors"
	"strings"
)

// ErrInvalidContactKey is returned when a company or phone is missing.
var ErrInvalidContactKey = errors.New("company id and contact phone are required")

// Contact is the subset of a contact record this service reads and updates.
type Contact struct {
	Key              string `json:"key"`
	CompanyID        string `json:"company_id"`
	Phone            string `json:"phone"`
	InteractionCount int    `json:"interaction_count"`
	HistoryLength    int    `json:"history_length"`
}

// ContactKey builds the identifier of a contact within a company.
func ContactKey(companyID, phone string) (string, error) {
	companyID = strings.TrimSpace(companyID)
	phone = strings.TrimSpace(phone)

	if companyID == "" || phone == "" {
		return "", ErrInvalidContactKey
	}

	return companyID + ":" + phone, nil
}

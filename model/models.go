package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Model struct {
	CreatedAt *time.Time `json:"createdAt" readonly:"true"`
	UpdatedAt *time.Time `json:"updatedAt" readonly:"true"`
}

type ListMeta struct {
	Total uint64 `json:"total"`
}

type StringSlice []string

func (a StringSlice) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *StringSlice) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan StringSlice: not []byte")
	}
	return json.Unmarshal(bytes, a)
}

// MetricsMap holds the sparse named quality scores of a verification.
// Metrics a format check does not produce are absent, not zero.
type MetricsMap map[string]float64

func (m MetricsMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *MetricsMap) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan MetricsMap: not []byte")
	}
	return json.Unmarshal(bytes, m)
}

type Issue struct {
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

type IssueList []Issue

func (l IssueList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *IssueList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan IssueList: not []byte")
	}
	return json.Unmarshal(bytes, l)
}

func PtrOf[T any](v T) *T {
	return &v
}

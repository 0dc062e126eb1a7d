package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Request is a supply request raised by a worker.  Status is the
// main workflow state; OwnerStatus is the parallel escalation
// annotation and is only meaningful while Status is pending.
//
// Fields:
//  ID          – identifier assigned by the service.
//  Item        – what is being requested.
//  Quantity    – how many; expected to be positive.
//  Project     – project or site label entered by the worker.
//  Notes       – optional free text.
//  Status      – workflow state (pending, approved, ...).
//  OwnerStatus – escalation annotation (none, pending, approved, rejected).
//  PhotoURL    – optional link to an uploaded photo.
//  CreatedBy   – id of the worker who raised the request (0 when unknown).
//  ComplexID   – complex of the creator, when the service reports it.
type Request struct {
	ID          int64       `json:"id"`
	Item        string      `json:"item"`
	Quantity    Quantity    `json:"quantity"`
	Project     string      `json:"project"`
	Notes       string      `json:"notes,omitempty"`
	Status      Status      `json:"status"`
	OwnerStatus OwnerStatus `json:"owner_status"`
	PhotoURL    string      `json:"photo_url,omitempty"`
	CreatedBy   int64       `json:"created_by,omitempty"`
	ComplexID   *int64      `json:"complex_id,omitempty"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
}

// Normalize fills defaults for fields a service may omit.
func (r *Request) Normalize() {
	if r.OwnerStatus == "" {
		r.OwnerStatus = OwnerNone
	}
}

// RequestDraft is the body of a create call.
type RequestDraft struct {
	Item     string   `json:"item"`
	Quantity Quantity `json:"quantity"`
	Project  string   `json:"project"`
	Notes    string   `json:"notes"`
}

// RequestPatch is the body of an edit call.  Nil pointers are left out
// of the payload; Notes is always sent so it can be cleared.
type RequestPatch struct {
	Item     *string   `json:"item,omitempty"`
	Quantity *Quantity `json:"quantity,omitempty"`
	Project  *string   `json:"project,omitempty"`
	Notes    string    `json:"notes"`
}

// PatchFromForm builds a RequestPatch from raw form strings.  Empty
// item, quantity or project values keep the current field unchanged.
func PatchFromForm(item, quantity, project, notes string) (RequestPatch, error) {
	p := RequestPatch{Notes: notes}
	if v := strings.TrimSpace(item); v != "" {
		p.Item = &v
	}
	if v := strings.TrimSpace(quantity); v != "" {
		q, err := ParseQuantity(v)
		if err != nil {
			return RequestPatch{}, err
		}
		p.Quantity = &q
	}
	if v := strings.TrimSpace(project); v != "" {
		p.Project = &v
	}
	return p, nil
}

// Quantity is a request amount.  It is encoded as a JSON number but
// also accepts numeric strings, which older clients sent.
type Quantity float64

// ParseQuantity parses a decimal string.  NaN and infinities are
// rejected; they cannot be encoded as JSON.
func ParseQuantity(s string) (Quantity, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("quantity %q: not a number", s)
	}
	return Quantity(f), nil
}

func (q Quantity) String() string { return strconv.FormatFloat(float64(q), 'f', -1, 64) }

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*q = 0
			return nil
		}
		v, err := ParseQuantity(s)
		if err != nil {
			return err
		}
		*q = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*q = Quantity(f)
	return nil
}

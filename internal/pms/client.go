// Package pms is the HTTP client for the remote practice management system
// (an rdvdentiste-compatible booking API). It implements
// scheduling.RemoteAPI and owns all wire-format quirks so the rest of the
// service sees clean domain types.
package pms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/veloxdental/scheduling-middleware/internal/scheduling"
)

// StatusError preserves the upstream HTTP status for read-path failures so
// handlers can surface it instead of a generic 500.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pms returned status %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL        string
	practitionerID string
	defaults       scheduling.Credentials
	http           *http.Client
}

func NewClient(baseURL, practitionerID string, defaults scheduling.Credentials, timeout time.Duration) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		practitionerID: practitionerID,
		defaults:       defaults,
		http:           &http.Client{Timeout: timeout},
	}
}

var _ scheduling.RemoteAPI = (*Client)(nil)

func (c *Client) FindPatients(ctx context.Context, creds scheduling.Credentials, q scheduling.PatientQuery) ([]scheduling.PatientSummary, error) {
	params := url.Values{}
	if q.Mobile != "" {
		params.Set("mobile", q.Mobile)
	}
	if q.LastName != "" {
		params.Set("lastName", q.LastName)
	}
	if q.FirstName != "" {
		params.Set("firstName", q.FirstName)
	}
	if q.BirthDate != "" {
		params.Set("birthDate", q.BirthDate)
	}

	body, status, err := c.do(ctx, http.MethodGet, "/patients/find", creds, params)
	if err != nil {
		return nil, err
	}
	// The patient index answers 404 for "no match"; that is an empty result,
	// not a failure.
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, &StatusError{Status: status, Body: truncate(body)}
	}

	var resp findPatientsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("decode patients response: %w", err)
	}
	// A 200 can still carry an error envelope. Not-found stays an empty
	// result; anything else surfaces with the remote's own text.
	if resp.Error != nil {
		text := resp.Error.text()
		if resp.Error.Code == "notFound" || strings.Contains(strings.ToLower(text), "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("pms patients error: %s", text)
	}

	out := make([]scheduling.PatientSummary, 0, len(resp.Patients))
	for _, p := range resp.Patients {
		if p.id() == "" {
			continue
		}
		out = append(out, scheduling.PatientSummary{
			ID:        p.id(),
			LastName:  p.lastName(),
			FirstName: p.firstName(),
			Mobile:    p.Mobile,
			BirthDate: p.BirthDate,
		})
	}
	return out, nil
}

func (c *Client) ListAppointments(ctx context.Context, creds scheduling.Credentials, patientID string) ([]scheduling.Appointment, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/patients/"+url.PathEscape(patientID)+"/appointments", creds, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Status: status, Body: truncate(body)}
	}

	var wire []wireAppointment
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("decode appointments response: %w", err)
	}

	out := make([]scheduling.Appointment, 0, len(wire))
	for _, a := range wire {
		apptStatus := a.Status
		if apptStatus == "" {
			apptStatus = "active"
		}
		out = append(out, scheduling.Appointment{
			PrimaryID:       a.primaryID(),
			AlternateID:     a.alternateID(),
			PatientID:       patientID,
			Date:            a.Date,
			Time:            a.startTime(),
			TypeName:        a.typeName(),
			DurationMinutes: a.Duration,
			Status:          apptStatus,
		})
	}
	return out, nil
}

func (c *Client) CancelAppointment(ctx context.Context, creds scheduling.Credentials, resourcePath string) (scheduling.CancelReply, error) {
	body, status, err := c.do(ctx, http.MethodDelete, resourcePath, creds, nil)
	if err != nil {
		return scheduling.CancelReply{}, err
	}

	if text := cancelErrorText(body); text != "" {
		return scheduling.CancelReply{ErrorText: text}, nil
	}

	// Some backends answer a bare non-2xx with no usable body. Report the
	// status as the rejection text so the reconciler moves on.
	if status < 200 || status >= 300 {
		return scheduling.CancelReply{ErrorText: fmt.Sprintf("status %d", status)}, nil
	}

	return scheduling.CancelReply{}, nil
}

// cancelErrorText digs the rejection text out of whichever error envelope
// the delete endpoint used: {"error": "..."}, {"error": {...}} or
// {"Error": {...}}.
func cancelErrorText(body string) string {
	var resp cancelResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return ""
	}

	for _, raw := range []any{resp.Error, resp.ErrorUpper} {
		switch v := raw.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			for _, key := range []string{"text", "message", "code"} {
				if s, ok := v[key].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func (c *Client) ListSlots(ctx context.Context, creds scheduling.Credentials, q scheduling.SlotQuery) ([]scheduling.RawSlot, error) {
	params := url.Values{}
	params.Set("start", q.StartDate)
	params.Set("end", q.EndDate)
	params.Set("newPatient", boolFlag(q.NewPatient))

	path := fmt.Sprintf("/schedules/%s/slots/%s/", c.practitionerID, url.PathEscape(q.TypeCode))
	body, status, err := c.do(ctx, http.MethodGet, path, creds, params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Status: status, Body: truncate(body)}
	}

	// The feed answers either {"AvailableSlots": [...]} or a bare array.
	var slots []wireSlot
	var envelope slotsResponse
	if err := json.Unmarshal([]byte(body), &envelope); err == nil {
		slots = envelope.AvailableSlots
	} else if err := json.Unmarshal([]byte(body), &slots); err != nil {
		return nil, fmt.Errorf("decode slots response: %w", err)
	}

	out := make([]scheduling.RawSlot, 0, len(slots))
	for _, s := range slots {
		date, hhmm, ok := splitSlotStart(s.Start)
		if !ok {
			continue
		}
		out = append(out, scheduling.RawSlot{Date: date, Time: hhmm})
	}
	return out, nil
}

// splitSlotStart splits "2026-09-07T09:30:00" into its date and HH:MM parts.
func splitSlotStart(start string) (date, hhmm string, ok bool) {
	i := strings.IndexByte(start, 'T')
	if i < 0 || len(start) < i+6 {
		return "", "", false
	}
	return start[:i], start[i+1 : i+6], true
}

func (c *Client) CreateAppointment(ctx context.Context, creds scheduling.Credentials, req scheduling.BookingRequest) (scheduling.BookingResult, error) {
	params := url.Values{}
	params.Set("firstName", req.FirstName)
	params.Set("lastName", req.LastName)
	params.Set("mobile", req.Mobile)
	params.Set("newPatient", boolFlag(req.NewPatient))
	if req.Email != "" {
		params.Set("email", req.Email)
	}
	if req.BirthDate != "" {
		params.Set("birthDate", req.BirthDate)
	}
	if req.Message != "" {
		params.Set("messagePatient", req.Message)
	}

	path := fmt.Sprintf("/schedules/%s/slots/%s/%s/%s/",
		c.practitionerID, url.PathEscape(req.TypeCode), url.PathEscape(req.Date), url.PathEscape(req.Time))

	body, status, err := c.do(ctx, http.MethodPut, path, creds, params)
	if err != nil {
		return scheduling.BookingResult{}, err
	}
	if status != http.StatusOK && status != http.StatusBadRequest {
		return scheduling.BookingResult{}, &StatusError{Status: status, Body: truncate(body)}
	}

	var resp createResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return scheduling.BookingResult{}, fmt.Errorf("decode create response: %w", err)
	}

	return scheduling.BookingResult{
		Confirmed:     resp.Done,
		AppointmentID: resp.appointmentID(),
		Busy:          resp.Busy,
	}, nil
}

func (c *Client) ListSchedules(ctx context.Context, creds scheduling.Credentials) ([]scheduling.Schedule, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/schedules", creds, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Status: status, Body: truncate(body)}
	}

	var schedules []wireSchedule
	var envelope schedulesResponse
	if err := json.Unmarshal([]byte(body), &envelope); err == nil {
		schedules = envelope.Schedules
	} else if err := json.Unmarshal([]byte(body), &schedules); err != nil {
		return nil, fmt.Errorf("decode schedules response: %w", err)
	}

	out := make([]scheduling.Schedule, 0, len(schedules))
	for _, sch := range schedules {
		s := scheduling.Schedule{
			PractitionerID:   sch.ID,
			PractitionerName: sch.Name,
		}
		for _, t := range sch.AppointmentTypes {
			s.AppointmentTypes = append(s.AppointmentTypes, scheduling.AppointmentType{
				Code:            t.Code,
				Name:            t.Name,
				DurationMinutes: t.Duration,
				NewPatientOnly:  t.NewPatientOnly,
			})
		}
		out = append(out, s)
	}
	return out, nil
}

// Ping checks upstream reachability for the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, status, err := c.do(ctx, http.MethodGet, "/schedules", c.defaults, nil)
	if err != nil {
		return err
	}
	if status >= http.StatusInternalServerError {
		return &StatusError{Status: status}
	}
	return nil
}

// do issues one request with office headers applied and returns the raw body
// and status. Transport-level failures map to ErrRemoteUnavailable so
// callers can distinguish "the PMS said no" from "the PMS never answered".
func (c *Client) do(ctx context.Context, method, path string, creds scheduling.Credentials, params url.Values) (body string, status int, err error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build pms request: %w", err)
	}

	officeCode := creds.OfficeCode
	if officeCode == "" {
		officeCode = c.defaults.OfficeCode
	}
	apiKey := creds.APIKey
	if apiKey == "" {
		apiKey = c.defaults.APIKey
	}

	req.Header.Set("OfficeCode", officeCode)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("ApiKey", apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isUnavailable(err) {
			return "", 0, fmt.Errorf("%w: %v", scheduling.ErrRemoteUnavailable, err)
		}
		return "", 0, fmt.Errorf("pms %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("read pms response: %w", err)
	}

	return string(raw), resp.StatusCode, nil
}

func isUnavailable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func truncate(s string) string {
	const max = 256
	if len(s) > max {
		return s[:max]
	}
	return s
}

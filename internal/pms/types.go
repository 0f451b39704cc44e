package pms

// Wire types for the rdvdentiste-compatible API. The upstream is loose about
// field names (identifier vs id, lastName vs family, rdvId vs id), so each
// struct decodes every spelling and the accessors pick the first non-empty
// one.

type findPatientsResponse struct {
	Patients []wirePatient `json:"Patients"`
	Error    *wireError    `json:"Error"`
}

type wirePatient struct {
	Identifier string `json:"identifier"`
	ID         string `json:"id"`
	LastName   string `json:"lastName"`
	Family     string `json:"family"`
	FirstName  string `json:"firstName"`
	Given      string `json:"given"`
	Mobile     string `json:"mobile"`
	BirthDate  string `json:"birthDate"`
}

func (p wirePatient) id() string {
	if p.Identifier != "" {
		return p.Identifier
	}
	return p.ID
}

func (p wirePatient) lastName() string {
	if p.LastName != "" {
		return p.LastName
	}
	return p.Family
}

func (p wirePatient) firstName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	return p.Given
}

type wireAppointment struct {
	RdvID       string          `json:"rdvId"`
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Start       string          `json:"start"`
	Hour        string          `json:"hour"`
	ServiceType wireServiceType `json:"service_type"`
	Type        string          `json:"type"`
	Duration    int             `json:"duration"`
	Status      string          `json:"status"`
}

type wireServiceType struct {
	Display string `json:"display"`
}

func (a wireAppointment) primaryID() string {
	if a.RdvID != "" {
		return a.RdvID
	}
	return a.ID
}

func (a wireAppointment) alternateID() string {
	if a.RdvID != "" && a.ID != "" && a.RdvID != a.ID {
		return a.ID
	}
	return ""
}

func (a wireAppointment) startTime() string {
	if a.Start != "" {
		return a.Start
	}
	return a.Hour
}

func (a wireAppointment) typeName() string {
	if a.ServiceType.Display != "" {
		return a.ServiceType.Display
	}
	return a.Type
}

type wireError struct {
	Code    string `json:"code"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

func (e *wireError) text() string {
	if e == nil {
		return ""
	}
	if e.Text != "" {
		return e.Text
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// cancelResponse covers both error envelopes the delete endpoints use.
type cancelResponse struct {
	Error      any `json:"error"`
	ErrorUpper any `json:"Error"`
}

type slotsResponse struct {
	AvailableSlots []wireSlot `json:"AvailableSlots"`
}

type wireSlot struct {
	Start string `json:"start"` // ISO datetime, e.g. 2026-09-07T09:30:00
}

type createResponse struct {
	Done      bool   `json:"done"`
	RdvID     string `json:"rdvId"`
	IDDemande string `json:"idDemande"`
	Busy      string `json:"busy"`
}

func (c createResponse) appointmentID() string {
	if c.RdvID != "" {
		return c.RdvID
	}
	return c.IDDemande
}

type schedulesResponse struct {
	Schedules []wireSchedule `json:"Schedules"`
}

type wireSchedule struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	AppointmentTypes []wireAppointmentType `json:"appointmentTypes"`
}

type wireAppointmentType struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Duration       int    `json:"duration"`
	NewPatientOnly bool   `json:"newPatientOnly"`
}

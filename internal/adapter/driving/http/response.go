package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/certregistry/internal/domain/model"
)

// Response messages. Clients match on these strings verbatim.
const (
	msgParticipantAdded   = "Participant added successfully."
	msgParticipantUpdated = "Participant updated."
	msgParticipantDeleted = "Participant deleted."
	msgNotFound           = "Participant not found."
	msgDuplicate          = "Participant with this serial number already exists."
	msgSerialRequired     = "serialNumber is required."
	msgUnauthorized       = "Unauthorized."
	msgInvalidBody        = "invalid request body"
	msgInternal           = "internal server error"

	statusOK           = "ok"
	statusUnauthorized = "unauthorized"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse is the body of a successful mutation.
type messageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the body of the verify-password endpoint.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ParticipantResponse is the JSON representation of a participant.
type ParticipantResponse struct {
	SerialNumber     string `json:"serialNumber"`
	Name             string `json:"name"`
	ProgramEvents    string `json:"programEvents"`
	IssueDate        string `json:"issueDate"`
	Position         string `json:"position"`
	ProgramPhotoLink string `json:"programPhotoLink"`
	CertificateURL   string `json:"certificateUrl"`
}

// ParticipantRequest is the JSON body for create and update. Password is
// only consulted by update; omitted fields decode as empty strings.
type ParticipantRequest struct {
	SerialNumber     string `json:"serialNumber"`
	Name             string `json:"name"`
	ProgramEvents    string `json:"programEvents"`
	IssueDate        string `json:"issueDate"`
	Position         string `json:"position"`
	ProgramPhotoLink string `json:"programPhotoLink"`
	CertificateURL   string `json:"certificateUrl"`
	Password         string `json:"password"`
}

// PasswordRequest is the JSON body for delete and verify-password.
type PasswordRequest struct {
	Password string `json:"password"`
}

// toParticipant converts a request body to the domain model.
func (r ParticipantRequest) toParticipant() model.Participant {
	return model.Participant{
		SerialNumber:     r.SerialNumber,
		Name:             r.Name,
		ProgramEvents:    r.ProgramEvents,
		IssueDate:        r.IssueDate,
		Position:         r.Position,
		ProgramPhotoLink: r.ProgramPhotoLink,
		CertificateURL:   r.CertificateURL,
	}
}

// toParticipantResponse converts a domain Participant to its JSON representation.
func toParticipantResponse(p model.Participant) ParticipantResponse {
	return ParticipantResponse{
		SerialNumber:     p.SerialNumber,
		Name:             p.Name,
		ProgramEvents:    p.ProgramEvents,
		IssueDate:        p.IssueDate,
		Position:         p.Position,
		ProgramPhotoLink: p.ProgramPhotoLink,
		CertificateURL:   p.CertificateURL,
	}
}

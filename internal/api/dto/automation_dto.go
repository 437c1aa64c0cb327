package dto

// AutomationCallbackRequest is the payload the RPA orchestrator posts back
// after a CBS update job finishes.
type AutomationCallbackRequest struct {
	JobID        string `json:"jobId"`
	TicketNumber string `json:"ticketNumber"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

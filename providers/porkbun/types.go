// Package porkbun is a thin client for the Porkbun v3 JSON API, covering what
// a dynamic-DNS updater needs: listing a domain's records and editing A
// records by name and type.
package porkbun

import "strings"

// Credentials authenticate every API call. Porkbun expects them in the JSON body.
type Credentials struct {
	SecretAPIKey string `json:"secretapikey"`
	APIKey       string `json:"apikey"`
}

// UpdateRequestBody is the body of an editByNameType call.
type UpdateRequestBody struct {
	Credentials
	Content string `json:"content"`
}

// NewUpdateRequestBody pairs credentials with the IP to publish.
func NewUpdateRequestBody(creds Credentials, ip string) UpdateRequestBody {
	return UpdateRequestBody{Credentials: creds, Content: ip}
}

// Record is a DNS record as returned by the retrieve endpoint.
// Name is fully qualified.
type Record struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	TTL     string `json:"ttl,omitempty"`
}

// statusResponse carries the status fields present on every API response.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// retrieveResponse is the body of a retrieve call. Records is a pointer so a
// response without the field can be told apart from an empty list.
type retrieveResponse struct {
	statusResponse
	Records *[]Record `json:"records"`
}

// Outcome is the result of an A record update.
type Outcome int

const (
	// OutcomeUnchanged means the provider did not accept the edit, which is how
	// Porkbun reports that the record already holds the submitted IP.
	OutcomeUnchanged Outcome = iota
	// OutcomeUpdated means the provider accepted the edit.
	OutcomeUpdated
)

// String returns "unchanged" or "updated".
func (o Outcome) String() string {
	if o == OutcomeUpdated {
		return "updated"
	}
	return "unchanged"
}

// RecordTypeA is the only record type this client edits.
const RecordTypeA = "A"

// SubdomainLabels returns the first label of every A record whose name has
// more than two dot-separated components, in input order. The result is never nil.
//
// "sub.example.com" yields "sub"; "example.com" and non-A records are skipped.
func SubdomainLabels(records []Record) []string {
	labels := make([]string, 0, len(records))
	for _, r := range records {
		if r.Type != RecordTypeA {
			continue
		}
		parts := strings.Split(r.Name, ".")
		if len(parts) > 2 {
			labels = append(labels, parts[0])
		}
	}
	return labels
}

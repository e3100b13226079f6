package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-mizu/s3gw/internal/backend"
)

// backendContainer is one entry of the JSON array the backend returns
// for GET /v1/<account>?format=json.
type backendContainer struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// serviceController implements GET Service: list all buckets owned by
// the account.
func (rc *requestContext) serviceController() {
	if rc.r.Method != http.MethodGet {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}

	resp, err := rc.do(rc.r.Context(), http.MethodGet, backend.AccountPath(rc.account),
		queryValues("format", "json"), nil, nil, 0)
	if err != nil {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		WriteError(rc.w, statusToError(resp.StatusCode, "", ""))
		return
	}

	var containers []backendContainer
	if err := json.NewDecoder(resp.Body).Decode(&containers); err != nil {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}

	ownerID := ""
	if len(containers) > 0 {
		ownerID = containers[0].Owner
	}
	names := make([]string, len(containers))
	for i, c := range containers {
		names[i] = c.Name
	}

	body := renderListAllMyBuckets(ownerID, names)
	rc.w.Header().Set("Content-Type", "application/xml")
	rc.w.WriteHeader(http.StatusOK)
	_, _ = rc.w.Write(body)
}

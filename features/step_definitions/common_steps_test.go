package steps

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// sharedResponseContext holds the last HTTP response seen by a scenario.
// Both the weather and recommendation step definitions embed this so that
// the generic response assertions below are registered exactly once.
type sharedResponseContext struct {
	response     *http.Response
	responseBody map[string]interface{}
}

func (s *sharedResponseContext) get(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}

	s.response = resp

	return json.NewDecoder(resp.Body).Decode(&s.responseBody)
}

func (s *sharedResponseContext) post(url, body string) error {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		return err
	}

	s.response = resp

	return json.NewDecoder(resp.Body).Decode(&s.responseBody)
}

func (s *sharedResponseContext) iShouldReceiveSuccessfulResponse() error {
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status 200, got %d", s.response.StatusCode)
	}
	return nil
}

func (s *sharedResponseContext) iShouldReceiveBadRequestError() error {
	if s.response.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("expected status 400, got %d", s.response.StatusCode)
	}
	return nil
}

func (s *sharedResponseContext) iShouldReceiveServiceUnavailableError() error {
	if s.response.StatusCode != http.StatusServiceUnavailable {
		return fmt.Errorf("expected status 503, got %d", s.response.StatusCode)
	}
	return nil
}

func (s *sharedResponseContext) iShouldReceiveUnprocessableEntityError() error {
	if s.response.StatusCode != http.StatusUnprocessableEntity {
		return fmt.Errorf("expected status 422, got %d", s.response.StatusCode)
	}
	return nil
}

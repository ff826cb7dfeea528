package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-graph/pkg/scenario"
)

func TestScenarioHandler_ServeHTTP(t *testing.T) {
	handler := NewScenarioHandler(testLogger(), newTestStorage())

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "list scenarios",
			method:         http.MethodGet,
			path:           "/v1/scenarios",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var list map[string]string
				require.NoError(t, json.Unmarshal(body, &list))
				assert.Equal(t, map[string]string{"Forest Walk": "forest.yaml", "Broken": "broken.yaml"}, list)
			},
		},
		{
			name:           "get scenario",
			method:         http.MethodGet,
			path:           "/v1/scenarios/forest.yaml",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var s scenario.Scenario
				require.NoError(t, json.Unmarshal(body, &s))
				assert.Equal(t, "Forest Walk", s.Name)
				require.Len(t, s.Scenes, 2)
				assert.Len(t, s.Scenes[0].Dialogues, 4)
			},
		},
		{
			name:           "scenario not found",
			method:         http.MethodGet,
			path:           "/v1/scenarios/missing.yaml",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "path traversal rejected",
			method:         http.MethodGet,
			path:           "/v1/scenarios/..%2Fsecret",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown sub-resource",
			method:         http.MethodGet,
			path:           "/v1/scenarios/forest.yaml/other",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "method not allowed",
			method:         http.MethodPost,
			path:           "/v1/scenarios",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "valid scenario validation",
			method:         http.MethodGet,
			path:           "/v1/scenarios/forest.yaml/validation",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp ValidationResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.True(t, resp.Valid)
				assert.Empty(t, resp.Scenes)
			},
		},
		{
			name:           "broken scenario validation",
			method:         http.MethodGet,
			path:           "/v1/scenarios/broken.yaml/validation",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp ValidationResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.False(t, resp.Valid)
				require.Contains(t, resp.Scenes, "start")
				issues := resp.Scenes["start"]["a"]
				require.Len(t, issues, 1)
				assert.Equal(t, scenario.IssueError, issues[0].Type)
				assert.Contains(t, issues[0].Message, "nowhere")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.check != nil {
				tt.check(t, w.Body.Bytes())
			}
		})
	}
}

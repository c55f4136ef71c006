package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// jiraMaxResults caps the issues pulled per board per run.
const jiraMaxResults = 100

// jiraLookback selects issues updated within the reporting window.
const jiraLookback = 7 * 24 * time.Hour

type jiraSearchResponse struct {
	Issues []jiraIssue `json:"issues"`
	Total  int         `json:"total"`
}

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Priority *struct {
			Name string `json:"name"`
		} `json:"priority"`
		Updated string `json:"updated"`
		Created string `json:"created"`
	} `json:"fields"`
}

// fetchJiraBoard queries one project board for recently updated issues and
// shapes them into two tabs: the issue list and a status rollup. The
// descriptor location is the project key.
func (c *Client) fetchJiraBoard(ctx context.Context, desc types.SourceDescriptor) (*types.RawSource, error) {
	if c.cfg.JiraBaseURL == "" || c.cfg.JiraAPIToken == "" {
		return nil, &UnavailableError{
			SourceID: desc.ID,
			Message:  "jira is not configured (missing base URL or API token)",
		}
	}

	since := time.Now().Add(-jiraLookback).Format("2006-01-02")
	jql := fmt.Sprintf("project = %s AND updated >= %q ORDER BY updated DESC", desc.Location, since)

	endpoint := fmt.Sprintf("%s/rest/api/3/search?%s",
		strings.TrimRight(c.cfg.JiraBaseURL, "/"),
		url.Values{
			"jql":        {jql},
			"maxResults": {fmt.Sprintf("%d", jiraMaxResults)},
			"fields":     {"summary,status,assignee,priority,updated,created"},
		}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UnavailableError{SourceID: desc.ID, Message: "building jira request", Cause: err}
	}
	req.SetBasicAuth(c.cfg.JiraEmail, c.cfg.JiraAPIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnavailableError{SourceID: desc.ID, Message: "jira request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{
			SourceID: desc.ID,
			Message:  fmt.Sprintf("jira returned HTTP %d", resp.StatusCode),
		}
	}

	var search jiraSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, &UnavailableError{SourceID: desc.ID, Message: "decoding jira response", Cause: err}
	}

	c.log.Debug("fetched jira board",
		"source_id", desc.ID,
		"project", desc.Location,
		"issues", len(search.Issues))

	return &types.RawSource{
		Title: fmt.Sprintf("Jira Board %s", desc.Location),
		Tabs: []types.RawTab{
			issuesTab(search.Issues),
			statusSummaryTab(search.Issues),
		},
	}, nil
}

func issuesTab(issues []jiraIssue) types.RawTab {
	cells := [][]any{
		{"Key", "Summary", "Status", "Assignee", "Priority", "Updated"},
	}
	for _, issue := range issues {
		assignee := "Unassigned"
		if issue.Fields.Assignee != nil {
			assignee = issue.Fields.Assignee.DisplayName
		}
		priority := "None"
		if issue.Fields.Priority != nil {
			priority = issue.Fields.Priority.Name
		}
		cells = append(cells, []any{
			issue.Key,
			issue.Fields.Summary,
			issue.Fields.Status.Name,
			assignee,
			priority,
			issue.Fields.Updated,
		})
	}
	return types.RawTab{Name: "Issues", Cells: cells}
}

// statusSummaryTab rolls issue statuses into the coarse buckets the report
// narrative talks about.
func statusSummaryTab(issues []jiraIssue) types.RawTab {
	var completed, inProgress, blocked int
	for _, issue := range issues {
		switch classifyStatus(issue.Fields.Status.Name) {
		case "completed":
			completed++
		case "in_progress":
			inProgress++
		case "blocked":
			blocked++
		}
	}

	return types.RawTab{
		Name: "Status Summary",
		Cells: [][]any{
			{"Metric", "Count"},
			{"Total Issues", len(issues)},
			{"Completed", completed},
			{"In Progress", inProgress},
			{"Blocked", blocked},
		},
	}
}

func classifyStatus(status string) string {
	s := strings.ToLower(status)
	switch {
	case containsAnyWord(s, "done", "completed", "closed", "resolved"):
		return "completed"
	case containsAnyWord(s, "progress", "development", "review"):
		return "in_progress"
	case containsAnyWord(s, "blocked", "impediment"):
		return "blocked"
	default:
		return "other"
	}
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

//go:build integration

package tests

import (
	"fmt"
	"net/http"
	"testing"

	"dvbc-erp-api/internal/testutil"
)

func TestTimesheetLifecycle(t *testing.T) {
	testutil.RequireIntegration(t)

	ownerID := seedUser(t, 1, "ts-owner@example.com", "employee")
	managerID := seedUser(t, 1, "ts-manager@example.com", "manager")
	ownerToken := tokenFor(t, ownerID, 1, "employee")
	managerToken := tokenFor(t, managerID, 1, "manager")

	// Save a draft for the week of Monday 2026-01-05
	w := doJSON(t, "PUT", "/timesheets", ownerToken, map[string]any{
		"week_start": "2026-01-05",
		"grid": map[string]map[string]float64{
			"1": {"2026-01-05": 8, "2026-01-06": 7.5},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 saving draft, got %d: %s", w.Code, w.Body.String())
	}

	var sheet struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decodeJSON(t, w, &sheet)
	if sheet.Status != "draft" {
		t.Errorf("Expected draft status, got %s", sheet.Status)
	}

	// Saving again overwrites the same week
	w = doJSON(t, "PUT", "/timesheets", ownerToken, map[string]any{
		"week_start": "2026-01-05",
		"grid": map[string]map[string]float64{
			"1": {"2026-01-05": 8},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 resaving draft, got %d: %s", w.Code, w.Body.String())
	}

	// Submit
	w = doJSON(t, "POST", fmt.Sprintf("/timesheets/%d/submit", sheet.ID), ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on submit, got %d: %s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &sheet)
	if sheet.Status != "submitted" {
		t.Errorf("Expected submitted status, got %s", sheet.Status)
	}

	// Submitted sheets cannot be edited
	w = doJSON(t, "PUT", "/timesheets", ownerToken, map[string]any{
		"week_start": "2026-01-05",
		"grid": map[string]map[string]float64{
			"1": {"2026-01-07": 4},
		},
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 editing submitted sheet, got %d", w.Code)
	}

	// Approve
	w = doJSON(t, "POST", fmt.Sprintf("/timesheets/%d/approve", sheet.ID), managerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on approve, got %d: %s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &sheet)
	if sheet.Status != "approved" {
		t.Errorf("Expected approved status, got %s", sheet.Status)
	}

	// A decided sheet cannot be approved again
	w = doJSON(t, "POST", fmt.Sprintf("/timesheets/%d/approve", sheet.ID), managerToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 re-approving, got %d", w.Code)
	}

	// Employees cannot approve at all
	w = doJSON(t, "POST", fmt.Sprintf("/timesheets/%d/approve", sheet.ID), ownerToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for employee approval, got %d", w.Code)
	}
}

func TestTimesheetRejectsBadGrid(t *testing.T) {
	testutil.RequireIntegration(t)

	userID := seedUser(t, 1, "ts-badgrid@example.com", "employee")
	token := tokenFor(t, userID, 1, "employee")

	// Quarter-hour entries are not allowed
	w := doJSON(t, "PUT", "/timesheets", token, map[string]any{
		"week_start": "2026-01-05",
		"grid": map[string]map[string]float64{
			"1": {"2026-01-05": 7.25},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for quarter-hour entry, got %d", w.Code)
	}

	// Week start must be a Monday
	w = doJSON(t, "PUT", "/timesheets", token, map[string]any{
		"week_start": "2026-01-06",
		"grid": map[string]map[string]float64{
			"1": {"2026-01-06": 8},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for non-Monday week start, got %d", w.Code)
	}
}

func TestTravelClaimReview(t *testing.T) {
	testutil.RequireIntegration(t)

	ownerID := seedUser(t, 1, "travel-owner@example.com", "employee")
	managerID := seedUser(t, 1, "travel-manager@example.com", "manager")
	ownerToken := tokenFor(t, ownerID, 1, "employee")
	managerToken := tokenFor(t, managerID, 1, "manager")

	w := doJSON(t, "POST", "/travel/reimbursements", ownerToken, map[string]any{
		"purpose":     "Client workshop",
		"destination": "Penang",
		"start_date":  "2026-02-02",
		"end_date":    "2026-02-04",
		"amount":      850.50,
		"currency":    "MYR",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var claim struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decodeJSON(t, w, &claim)
	if claim.Status != "pending" {
		t.Errorf("Expected pending status, got %s", claim.Status)
	}

	// Approve once
	w = doJSON(t, "POST", fmt.Sprintf("/travel/reimbursements/%d/approve", claim.ID), managerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on approve, got %d: %s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &claim)
	if claim.Status != "approved" {
		t.Errorf("Expected approved status, got %s", claim.Status)
	}

	// The decision is terminal
	w = doJSON(t, "POST", fmt.Sprintf("/travel/reimbursements/%d/reject", claim.ID), managerToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 re-reviewing, got %d", w.Code)
	}

	// Approved claims cannot be withdrawn
	w = doJSON(t, "DELETE", fmt.Sprintf("/travel/reimbursements/%d", claim.ID), ownerToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 deleting decided claim, got %d", w.Code)
	}
}

func TestSOWKickoff(t *testing.T) {
	testutil.RequireIntegration(t)

	managerID := seedUser(t, 1, "sow-manager@example.com", "manager")
	deliveryID := seedUser(t, 1, "sow-delivery@example.com", "manager")
	managerToken := tokenFor(t, managerID, 1, "manager")

	w := doJSON(t, "POST", "/sow", managerToken, map[string]any{
		"title":  "Network refresh phase 1",
		"client": "Acme Sdn Bhd",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var sow struct {
		ID int64 `json:"id"`
	}
	decodeJSON(t, w, &sow)

	// Add a scope item
	w = doJSON(t, "POST", fmt.Sprintf("/sow/%d/items", sow.ID), managerToken, map[string]any{
		"deliverable":    "Site survey report",
		"timeline_weeks": 2,
		"amount":         12000,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 adding item, got %d: %s", w.Code, w.Body.String())
	}

	// Kick off once
	w = doJSON(t, "POST", fmt.Sprintf("/sow/%d/kickoff", sow.ID), managerToken, map[string]any{
		"delivery_owner_id": deliveryID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on kickoff, got %d: %s", w.Code, w.Body.String())
	}

	// Second kickoff conflicts
	w = doJSON(t, "POST", fmt.Sprintf("/sow/%d/kickoff", sow.ID), managerToken, map[string]any{
		"delivery_owner_id": deliveryID,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 on repeat kickoff, got %d", w.Code)
	}
}

func TestChatFlow(t *testing.T) {
	testutil.RequireIntegration(t)

	aliceID := seedUser(t, 1, "chat-alice@example.com", "employee")
	bobID := seedUser(t, 1, "chat-bob@example.com", "employee")
	carolID := seedUser(t, 1, "chat-carol@example.com", "employee")
	aliceToken := tokenFor(t, aliceID, 1, "employee")
	bobToken := tokenFor(t, bobID, 1, "employee")
	carolToken := tokenFor(t, carolID, 1, "employee")

	w := doJSON(t, "POST", "/chat/conversations", aliceToken, map[string]any{
		"participant_ids": []int64{bobID},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var conv struct {
		ID int64 `json:"id"`
	}
	decodeJSON(t, w, &conv)

	// Alice posts a message
	w = doJSON(t, "POST", fmt.Sprintf("/chat/conversations/%d/messages", conv.ID), aliceToken, map[string]any{
		"body": "Kickoff moved to Thursday",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 sending message, got %d: %s", w.Code, w.Body.String())
	}

	var msg struct {
		ID string `json:"id"`
	}
	decodeJSON(t, w, &msg)

	// Bob can read the conversation
	w = doJSON(t, "GET", fmt.Sprintf("/chat/conversations/%d/messages", conv.ID), bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 listing messages, got %d: %s", w.Code, w.Body.String())
	}

	// Carol is not a participant
	w = doJSON(t, "GET", fmt.Sprintf("/chat/conversations/%d/messages", conv.ID), carolToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for non-participant, got %d", w.Code)
	}

	// Marking read is idempotent
	for i := 0; i < 2; i++ {
		w = doJSON(t, "POST", "/chat/messages/"+msg.ID+"/read", bobToken, nil)
		if w.Code != http.StatusNoContent {
			t.Errorf("Expected status 204 marking read (attempt %d), got %d", i+1, w.Code)
		}
	}

	// Carol cannot mark it read
	w = doJSON(t, "POST", "/chat/messages/"+msg.ID+"/read", carolToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for non-participant read, got %d", w.Code)
	}
}

func TestAttendanceGeofence(t *testing.T) {
	testutil.RequireIntegration(t)

	hrID := seedUser(t, 1, "att-hr@example.com", "hr_admin")
	userID := seedUser(t, 1, "att-user@example.com", "employee")
	hrToken := tokenFor(t, hrID, 1, "hr_admin")
	userToken := tokenFor(t, userID, 1, "employee")

	// Register the office geofence
	w := doJSON(t, "POST", "/attendance/offices", hrToken, map[string]any{
		"name":          "KL HQ",
		"latitude":      3.1390,
		"longitude":     101.6869,
		"radius_meters": 200,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating office, got %d: %s", w.Code, w.Body.String())
	}

	// Far from the office
	w = doJSON(t, "POST", "/attendance/check-in", userToken, map[string]any{
		"latitude":  3.2000,
		"longitude": 101.7000,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 outside geofence, got %d: %s", w.Code, w.Body.String())
	}

	// Inside the fence
	w = doJSON(t, "POST", "/attendance/check-in", userToken, map[string]any{
		"latitude":  3.1391,
		"longitude": 101.6869,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 checking in, got %d: %s", w.Code, w.Body.String())
	}

	// Only one check-in per day
	w = doJSON(t, "POST", "/attendance/check-in", userToken, map[string]any{
		"latitude":  3.1391,
		"longitude": 101.6869,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 on double check-in, got %d", w.Code)
	}

	// Check out
	w = doJSON(t, "POST", "/attendance/check-out", userToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 checking out, got %d: %s", w.Code, w.Body.String())
	}

	// Employees cannot browse another user's records
	w = doJSON(t, "GET", fmt.Sprintf("/attendance?user_id=%d", hrID), userToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 browsing another user, got %d", w.Code)
	}
}

func TestPermissionMatrixRoundTrip(t *testing.T) {
	testutil.RequireIntegration(t)

	adminID := seedUser(t, 1, "perm-admin@example.com", "org_admin")
	employeeID := seedUser(t, 1, "perm-employee@example.com", "employee")
	adminToken := tokenFor(t, adminID, 1, "org_admin")
	employeeToken := tokenFor(t, employeeID, 1, "employee")

	matrix := map[string]map[string]map[string]bool{
		"employee": {
			"chat":       {"view": true, "edit": true},
			"attendance": {"view": true},
		},
		"manager": {
			"consulting": {"view": true, "edit": true},
		},
	}

	w := doJSON(t, "PUT", "/permissions/matrix", adminToken, matrix)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 saving matrix, got %d: %s", w.Code, w.Body.String())
	}

	// Employees may read but not write
	w = doJSON(t, "PUT", "/permissions/matrix", employeeToken, matrix)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for employee write, got %d", w.Code)
	}

	w = doJSON(t, "GET", "/permissions/matrix", employeeToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 reading matrix, got %d: %s", w.Code, w.Body.String())
	}

	var got map[string]map[string]map[string]bool
	decodeJSON(t, w, &got)
	if !got["employee"]["chat"]["edit"] {
		t.Error("Expected employee chat edit to round-trip")
	}
	if got["employee"]["attendance"]["edit"] {
		t.Error("Expected attendance edit to stay false")
	}

	// Unknown modules are rejected
	w = doJSON(t, "PUT", "/permissions/matrix", adminToken, map[string]any{
		"employee": map[string]any{"billing": map[string]bool{"view": true}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown module, got %d", w.Code)
	}
}

func TestPermissionMatrixGatesChat(t *testing.T) {
	testutil.RequireIntegration(t)

	adminID := seedUser(t, 1, "gate-admin@example.com", "org_admin")
	employeeID := seedUser(t, 1, "gate-employee@example.com", "employee")
	managerID := seedUser(t, 1, "gate-manager@example.com", "manager")
	adminToken := tokenFor(t, adminID, 1, "org_admin")
	employeeToken := tokenFor(t, employeeID, 1, "employee")
	managerToken := tokenFor(t, managerID, 1, "manager")

	// Configure chat: employees may view and post, managers get no row
	w := doJSON(t, "PUT", "/permissions/matrix", adminToken, map[string]any{
		"employee": map[string]any{
			"chat": map[string]bool{"view": true, "edit": true},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 saving matrix, got %d: %s", w.Code, w.Body.String())
	}

	// Granted role passes
	w = doJSON(t, "GET", "/chat/conversations", employeeToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for granted role, got %d: %s", w.Code, w.Body.String())
	}

	// A role without a chat row is denied once the module is configured
	w = doJSON(t, "GET", "/chat/conversations", managerToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for ungranted role, got %d", w.Code)
	}
	w = doJSON(t, "POST", "/chat/conversations", managerToken, map[string]any{
		"participant_ids": []int64{employeeID},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 creating conversation, got %d", w.Code)
	}

	// org_admin bypasses the matrix
	w = doJSON(t, "GET", "/chat/conversations", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for org_admin bypass, got %d", w.Code)
	}

	// View-only: revoke edit for employees and posting is refused
	w = doJSON(t, "PUT", "/permissions/matrix", adminToken, map[string]any{
		"employee": map[string]any{
			"chat": map[string]bool{"view": true, "edit": false},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 saving matrix, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, "POST", "/chat/conversations", employeeToken, map[string]any{
		"participant_ids": []int64{managerID},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for view-only role, got %d", w.Code)
	}

	// Clearing the matrix reopens the module
	w = doJSON(t, "PUT", "/permissions/matrix", adminToken, map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 clearing matrix, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, "GET", "/chat/conversations", managerToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 once matrix is cleared, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOrganizationStats(t *testing.T) {
	testutil.RequireIntegration(t)

	adminID := seedUser(t, 1, "stats-admin@example.com", "org_admin")
	adminToken := tokenFor(t, adminID, 1, "org_admin")

	w := doJSON(t, "GET", "/organizations/1/stats", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats struct {
		OrgID       int64 `json:"org_id"`
		ActiveUsers int   `json:"active_users"`
	}
	decodeJSON(t, w, &stats)
	if stats.OrgID != 1 {
		t.Errorf("Expected org_id 1, got %d", stats.OrgID)
	}
	if stats.ActiveUsers == 0 {
		t.Error("Expected at least one active user")
	}

	// The main tenant cannot be deleted
	w = doJSON(t, "DELETE", "/organizations/1", adminToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 deleting main tenant, got %d", w.Code)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
)

var (
	apiBase    string
	token      string
	client     = &http.Client{Timeout: 30 * time.Second}
	createdIDs = make(map[string]string) // track created resources for cleanup
)

func main() {
	fmt.Println("=== Coach Hub E2E Smoke Test ===")
	fmt.Println()

	apiBase = strings.TrimSuffix(getEnv("API_BASE_URL", defaultAPIBase), "/")
	token = getEnv("SMOKE_TOKEN", "")

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Token: %s\n", maskString(token))
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Dev Token", testDevToken},
		{"Create Client", testCreateClient},
		{"Calculate Sheet", testCalculateSheet},
		{"Upsert Profile", testUpsertProfile},
		{"List Foods", testListFoods},
		{"Generate Plan", testGeneratePlan},
		{"Analyze Plan", testAnalyzePlan},
		{"Create Export (XLSX)", testCreateExport},
		{"List Exports", testListExports},
		{"Download Export", testDownloadExport},
		{"Delete Export", testDeleteExport},
		{"Delete Plan", testDeletePlan},
		{"Delete Client", testDeleteClient},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	_, err := call("GET", "/healthz", nil, http.StatusOK, nil)
	return err
}

// testDevToken берёт dev-токен, если SMOKE_TOKEN не задан; при AUTH_MODE=none шаг пропускается
func testDevToken() error {
	if token != "" {
		return nil
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	status, err := call("POST", "/v1/auth/dev", map[string]string{"user_id": "smoke"}, 0, &resp)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		token = resp.AccessToken
		return nil
	case http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("unexpected status=%d", status)
	}
}

func testCreateClient() error {
	var resp struct {
		ID string `json:"id"`
	}
	body := map[string]string{"first_name": "Smoke", "last_name": fmt.Sprintf("Test %d", time.Now().Unix())}
	if _, err := call("POST", "/v1/clients", body, http.StatusCreated, &resp); err != nil {
		return err
	}
	createdIDs["client"] = resp.ID
	return nil
}

func testCalculateSheet() error {
	body := map[string]interface{}{
		"client_id":      createdIDs["client"],
		"weight_kg":      72,
		"height_cm":      178,
		"age":            30,
		"sex":            "Homme",
		"activity_level": "Activité modérée",
		"goal":           "Prise de masse",
	}
	var resp struct {
		ObjectiveKcal int `json:"objective_kcal"`
	}
	if _, err := call("POST", "/v1/nutrition/sheets", body, http.StatusCreated, &resp); err != nil {
		return err
	}
	if resp.ObjectiveKcal <= 0 {
		return fmt.Errorf("objective_kcal=%d", resp.ObjectiveKcal)
	}
	return nil
}

func testUpsertProfile() error {
	body := map[string]interface{}{
		"age":            30,
		"sex":            "Homme",
		"weight_kg":      72,
		"height_cm":      178,
		"goal":           "Prise de masse",
		"activity_level": "Activité modérée",
		"meals_per_day":  4,
	}
	_, err := call("PUT", "/v1/profiles/"+createdIDs["client"], body, http.StatusOK, nil)
	return err
}

func testListFoods() error {
	var resp struct {
		Foods []json.RawMessage `json:"foods"`
	}
	if _, err := call("GET", "/v1/foods", nil, http.StatusOK, &resp); err != nil {
		return err
	}
	if len(resp.Foods) == 0 {
		return fmt.Errorf("catalog is empty (set SEED_FOOD_CATALOG=1)")
	}
	return nil
}

func testGeneratePlan() error {
	body := map[string]interface{}{
		"client_id": createdIDs["client"],
		"days":      2,
		"seed":      42,
		"save":      true,
		"plan_name": "Smoke plan",
	}
	var resp struct {
		SavedPlanID *string `json:"saved_plan_id"`
	}
	if _, err := call("POST", "/v1/mealgen/generate", body, http.StatusCreated, &resp); err != nil {
		return err
	}
	if resp.SavedPlanID == nil {
		return fmt.Errorf("saved_plan_id missing")
	}
	createdIDs["plan"] = *resp.SavedPlanID
	return nil
}

func testAnalyzePlan() error {
	body := map[string]interface{}{"plan_id": createdIDs["plan"], "days": 2}
	var resp map[string]interface{}
	_, err := call("POST", "/v1/mealgen/analyze", body, http.StatusOK, &resp)
	return err
}

func testCreateExport() error {
	body := map[string]string{"kind": "plan", "format": "xlsx", "subject_id": createdIDs["plan"]}
	var resp struct {
		ID string `json:"id"`
	}
	if _, err := call("POST", "/v1/exports", body, http.StatusCreated, &resp); err != nil {
		return err
	}
	createdIDs["export"] = resp.ID
	return nil
}

func testListExports() error {
	var resp struct {
		Exports []struct {
			ID string `json:"id"`
		} `json:"exports"`
	}
	if _, err := call("GET", "/v1/exports?client_id="+createdIDs["client"], nil, http.StatusOK, &resp); err != nil {
		return err
	}
	for _, e := range resp.Exports {
		if e.ID == createdIDs["export"] {
			return nil
		}
	}
	return fmt.Errorf("export %s not listed", createdIDs["export"])
}

func testDownloadExport() error {
	exportID := createdIDs["export"]
	if exportID == "" {
		return fmt.Errorf("no export ID to download")
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/v1/exports/%s/download", apiBase, exportID), nil)
	if err != nil {
		return err
	}
	addAuth(req)

	// redirect проверяем сами
	originalCheckRedirect := client.CheckRedirect
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	defer func() { client.CheckRedirect = originalCheckRedirect }()

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return checkPayload(resp.Body)
	case http.StatusFound:
		location := resp.Header.Get("Location")
		if location == "" {
			return fmt.Errorf("redirect without Location header")
		}
		getResp, err := http.Get(location)
		if err != nil {
			return fmt.Errorf("failed to follow redirect: %w", err)
		}
		defer getResp.Body.Close()
		if getResp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(getResp.Body, 4096))
			return fmt.Errorf("redirect failed: status=%d body=%s", getResp.StatusCode, string(body))
		}
		return checkPayload(getResp.Body)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, string(body))
	}
}

func testDeleteExport() error {
	_, err := call("DELETE", "/v1/exports/"+createdIDs["export"], nil, http.StatusNoContent, nil)
	return err
}

func testDeletePlan() error {
	_, err := call("DELETE", "/v1/plans/"+createdIDs["plan"], nil, http.StatusNoContent, nil)
	return err
}

func testDeleteClient() error {
	_, err := call("DELETE", "/v1/clients/"+createdIDs["client"], nil, http.StatusNoContent, nil)
	return err
}

// Helper functions

// call отправляет JSON-запрос; want=0 отключает проверку статуса
func call(method, path string, body interface{}, want int, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if want != 0 && resp.StatusCode != want {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(data))
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func checkPayload(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) < 10 {
		return fmt.Errorf("export too small: %d bytes", len(data))
	}
	return nil
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

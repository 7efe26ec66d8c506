// Command smoke walks a running gateway through sign-in, upload, selection,
// chat and feedback, printing every response.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
)

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Pretty print JSON helper
func prettyPrint(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}

func (c *client) do(req *http.Request) (*envelope, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	color.Green("Status: %s", resp.Status)

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unexpected body: %s", string(body))
	}
	if !env.Success {
		return &env, fmt.Errorf("%s", env.Message)
	}
	return &env, nil
}

func (c *client) sendJSON(method, path string, body interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(path string) (*envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/documents/upload?wait=true", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func step(title string, fn func() (*envelope, error)) *envelope {
	color.Yellow("\n%s", title)
	env, err := fn()
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(env.Data)
	return env
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000/api", "gateway API base URL")
	email := flag.String("email", os.Getenv("SMOKE_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("SMOKE_PASSWORD"), "account password")
	file := flag.String("file", "", "document to upload (optional)")
	flag.Parse()

	if *email == "" || *password == "" {
		color.Red("email and password are required (flags or SMOKE_EMAIL / SMOKE_PASSWORD)")
		os.Exit(2)
	}

	c := &client{baseURL: *baseURL, http: &http.Client{Timeout: 6 * time.Minute}}
	color.Cyan("🚀 Gateway smoke test against %s", c.baseURL)

	signIn := step("[AUTH] 1. Sign in", func() (*envelope, error) {
		return c.sendJSON(http.MethodPost, "/auth/signin", map[string]string{
			"email":    *email,
			"password": *password,
		})
	})
	var auth struct {
		AccessToken string `json:"access_token"`
		SessionID   string `json:"session_id"`
	}
	if err := json.Unmarshal(signIn.Data, &auth); err != nil || auth.AccessToken == "" {
		color.Red("Sign in returned no access token")
		os.Exit(1)
	}
	c.token = auth.AccessToken
	fmt.Printf("Session ID: %s\n", auth.SessionID)

	step("[SESSION] 2. Current state", func() (*envelope, error) {
		return c.sendJSON(http.MethodGet, "/session/state", nil)
	})

	var documentID string
	if *file != "" {
		uploaded := step("[DOCUMENTS] 3. Upload and wait for processing", func() (*envelope, error) {
			return c.upload(*file)
		})
		var res struct {
			DocumentID string `json:"document_id"`
		}
		_ = json.Unmarshal(uploaded.Data, &res)
		documentID = res.DocumentID
	}

	listed := step("[DOCUMENTS] 4. List documents", func() (*envelope, error) {
		return c.sendJSON(http.MethodGet, "/documents", nil)
	})
	if documentID == "" {
		var list struct {
			Documents []struct {
				DocumentID string `json:"document_id"`
			} `json:"documents"`
		}
		_ = json.Unmarshal(listed.Data, &list)
		if len(list.Documents) > 0 {
			documentID = list.Documents[0].DocumentID
		}
	}

	if documentID != "" {
		step("[DOCUMENTS] 5. Select "+documentID, func() (*envelope, error) {
			return c.sendJSON(http.MethodPost, "/documents/"+documentID+"/select", nil)
		})
	} else {
		color.Red("Skipping selection: no documents in the library")
	}

	step("[CHAT] 6. Ask about the document", func() (*envelope, error) {
		return c.sendJSON(http.MethodPost, "/chat", map[string]string{
			"message": "Summarise this document in two sentences.",
		})
	})

	step("[FEEDBACK] 7. Submit feedback", func() (*envelope, error) {
		return c.sendJSON(http.MethodPost, "/feedback", map[string]string{
			"feedback_type": "general",
			"feedback_text": "Smoke test run completed end to end.",
		})
	})

	step("[AUTH] 8. Sign out", func() (*envelope, error) {
		return c.sendJSON(http.MethodPost, "/auth/signout", nil)
	})

	color.Cyan("\n✅ Smoke test finished")
}

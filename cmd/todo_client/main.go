package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "HTTP server base URL")
	mode := flag.String("mode", "list", "mode: list | get | create | update | delete")
	id := flag.Int64("id", 0, "id for get / update / delete")
	text := flag.String("text", "", "text for create / update")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	base := strings.TrimRight(*addr, "/")

	var (
		method string
		path   string
		body   io.Reader
	)
	switch *mode {
	case "list":
		method, path = http.MethodGet, "/todos"

	case "get":
		requireID(*id)
		method, path = http.MethodGet, fmt.Sprintf("/todo/%d", *id)

	case "create":
		method, path, body = http.MethodPost, "/todos", textBody(*text)

	case "update":
		requireID(*id)
		method, path, body = http.MethodPut, fmt.Sprintf("/todo/%d", *id), textBody(*text)

	case "delete":
		requireID(*id)
		method, path = http.MethodDelete, fmt.Sprintf("/todo/%d", *id)

	default:
		log.Fatalf("unknown mode: %s", *mode)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer res.Body.Close()

	out, err := io.ReadAll(res.Body)
	if err != nil {
		log.Fatalf("failed to read response: %v", err)
	}

	fmt.Printf("%s %s -> %s\n", method, path, res.Status)
	if len(out) > 0 {
		fmt.Println(strings.TrimSpace(string(out)))
	}
	if res.StatusCode >= 400 {
		os.Exit(1)
	}
}

func requireID(id int64) {
	if id <= 0 {
		log.Fatal("id is required")
	}
}

// text が空なら {} を送る（サーバ側の必須チェックを確認できるように）
func textBody(text string) io.Reader {
	payload := map[string]string{}
	if text != "" {
		payload["text"] = text
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("failed to encode body: %v", err)
	}
	return bytes.NewReader(b)
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"
)

// End-to-end smoke against a running API: register an admin, log in, build
// a small catalog, record a sale and verify the stock decrement.
func main() {
	base := os.Getenv("INVENFLOW_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	suffix := rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	email := fmt.Sprintf("smoke-%d@invenflow.org", suffix)

	var registered struct {
		Data struct {
			AdminID string `json:"adminId"`
		} `json:"data"`
	}
	post(client, base+"/api/auth/register", map[string]any{
		"name":     "Smoke Admin",
		"email":    email,
		"password": "smoke-password-1",
	}, http.StatusOK, &registered)

	post(client, base+"/api/auth/login", map[string]any{
		"email":    email,
		"password": "smoke-password-1",
	}, http.StatusOK, nil)

	var supplier struct {
		Data struct {
			ID int64 `json:"supplier_id"`
		} `json:"data"`
	}
	post(client, base+"/api/suppliers", map[string]any{
		"name": fmt.Sprintf("Smoke Supplier %d", suffix),
	}, http.StatusCreated, &supplier)

	var category struct {
		Data struct {
			ID int64 `json:"category_id"`
		} `json:"data"`
	}
	post(client, base+"/api/categories", map[string]any{
		"name": fmt.Sprintf("Smoke Category %d", suffix),
	}, http.StatusCreated, &category)

	var product struct {
		Data struct {
			ID    int64 `json:"product_id"`
			Stock int   `json:"stock_quantity"`
		} `json:"data"`
	}
	post(client, base+"/api/products", map[string]any{
		"name":           fmt.Sprintf("Smoke Product %d", suffix),
		"price":          9.99,
		"stock_quantity": 10,
		"supplier_id":    supplier.Data.ID,
		"category_id":    category.Data.ID,
	}, http.StatusCreated, &product)

	post(client, base+"/api/sales", map[string]any{
		"items": []map[string]any{
			{"product_id": product.Data.ID, "quantity": 3},
		},
	}, http.StatusCreated, nil)

	var after struct {
		Data struct {
			Stock int `json:"stock_quantity"`
		} `json:"data"`
	}
	get(client, fmt.Sprintf("%s/api/products/%d", base, product.Data.ID), &after)
	if after.Data.Stock != 7 {
		log.Fatalf("stock not decremented: want 7, got %d", after.Data.Stock)
	}

	fmt.Println("smoke-api: OK")
}

func post(client *http.Client, url string, body map[string]any, wantStatus int, out any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal %s: %v", url, err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("POST %s: want %d, got %d", url, wantStatus, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s: %v", url, err)
		}
	}
}

func get(client *http.Client, url string, out any) {
	resp, err := client.Get(url)
	if err != nil {
		log.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("GET %s: want 200, got %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Fatalf("decode %s: %v", url, err)
	}
}

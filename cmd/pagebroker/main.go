package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	baseURL := pflag.StringP("server", "s", envOr("PAGEBROKER_SERVER_URL", "http://127.0.0.1:8080"), "URL du serveur (ex: http://127.0.0.1:8080)")
	timeout := pflag.Duration("timeout", 2*time.Minute, "Timeout HTTP")
	waitFree := pflag.Bool("wait-free", false, "single: utiliser un ticket wait-free")
	free := pflag.Bool("free", false, "single: épisode gratuit (session anonyme)")
	page := pflag.Int("page", 0, "search: page de résultats")
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		usage()
	}

	client := &http.Client{Timeout: *timeout}

	switch args[0] {
	case "health":
		run(client, *baseURL+"/api/v1/health")
	case "version":
		run(client, *baseURL+"/api/v1/version")
	case "stats":
		run(client, *baseURL+"/api/v1/stats")
	case "single":
		if len(args) != 3 {
			usage()
		}
		for _, a := range args[1:] {
			if _, err := strconv.ParseInt(a, 10, 64); err != nil {
				fmt.Fprintln(os.Stderr, "Identifiant invalide:", a)
				os.Exit(2)
			}
		}
		q := url.Values{}
		q.Set("series_id", args[1])
		q.Set("single_id", args[2])
		q.Set("wait_free", strconv.FormatBool(*waitFree))
		q.Set("free", strconv.FormatBool(*free))
		run(client, *baseURL+"/single?"+q.Encode())
	case "search":
		if len(args) != 2 {
			usage()
		}
		q := url.Values{}
		q.Set("keyword", args[1])
		q.Set("page", strconv.Itoa(*page))
		run(client, *baseURL+"/search?"+q.Encode())
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: pagebroker [flags] health|version|stats|single <series_id> <single_id>|search <keyword>")
	os.Exit(2)
}

func run(client *http.Client, url string) {
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(pretty)
		if resp.StatusCode >= 400 {
			os.Exit(1)
		}
		return
	}

	os.Stdout.Write(b)
	os.Stdout.Write([]byte("\n"))
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

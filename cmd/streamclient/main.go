// Test client that streams a generated tone to the verbatim endpoint and
// prints the SSE events it gets back.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/KyleGal/live-translation-api/internal/source"
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/api/translate/verbatim", "Verbatim endpoint URL")
	language := flag.String("language", "en", "Source language")
	sampleRate := flag.Int("rate", 16000, "Sample rate in Hz")
	frequency := flag.Float64("freq", 440, "Tone frequency in Hz")
	duration := flag.Float64("duration", 5, "Stream duration in seconds")
	flag.Parse()

	src, err := source.NewSyntheticSource(source.SyntheticConfig{
		SampleRate: *sampleRate,
		Frequency:  *frequency,
		Amplitude:  0.5,
		Duration:   *duration,
		ChunkSize:  4096,
	})
	if err != nil {
		log.Fatalf("Failed to create source: %v", err)
	}

	// Pace the chunks at real time so the server's phrase logic behaves as
	// it would with a live capture.
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		chunkSeconds := 4096.0 / 2.0 / float64(*sampleRate)
		ticker := time.NewTicker(time.Duration(chunkSeconds * float64(time.Second)))
		defer ticker.Stop()

		for range ticker.C {
			chunk, err := src.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				log.Printf("Source error: %v", err)
				return
			}
			if _, err := pw.Write(chunk); err != nil {
				return
			}
		}
	}()

	req, err := http.NewRequest(http.MethodPost, *endpoint, pr)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Source-Language", *language)
	req.Header.Set("X-Sample-Rate", fmt.Sprintf("%d", *sampleRate))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	log.Printf("Connected, session %s", resp.Header.Get("X-Session-ID"))

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			fmt.Println(line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Stream ended: %v", err)
	}
}

// Standalone fake transcription and diarization services for local testing.
// Point the main config at these endpoints to exercise the full pipeline
// without the real models.
package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var size int
	contentType := r.Header.Get("Content-Type")

	if err := r.ParseMultipartForm(50 << 20); err == nil {
		if file, header, ferr := r.FormFile("file"); ferr == nil {
			data, _ := io.ReadAll(file)
			file.Close()
			size = len(data)
			log.Printf("transcribe: multipart upload %s (%d bytes, language=%s)",
				header.Filename, size, r.FormValue("language"))
		}
	} else {
		body, _ := io.ReadAll(r.Body)
		size = len(body)
		log.Printf("transcribe: %s body (%d bytes)", contentType, size)
	}

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	end := 2.5
	response := map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"transcription": "this is a test transcription of the audio fragment",
			"timestamps": []map[string]interface{}{
				{"text": "this is a test", "timestamp": []interface{}{0.0, 1.2}},
				{"text": "transcription of the audio fragment", "timestamp": []interface{}{1.2, end}},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("transcribe: response sent")
}

func diarizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading audio", http.StatusBadRequest)
		return
	}

	log.Printf("diarize: %d bytes, sample_rate=%s, speakers=%s-%s, language=%s",
		len(body),
		r.Header.Get("X-Sample-Rate"),
		r.Header.Get("X-Min-Speakers"),
		r.Header.Get("X-Max-Speakers"),
		r.Header.Get("X-Source-Language"))

	// Simulate processing time
	time.Sleep(500 * time.Millisecond)

	response := map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"speakers": []map[string]interface{}{
				{"speaker_id": "SPEAKER_00", "start": 0.0, "end": 1.5},
				{"speaker_id": "SPEAKER_01", "start": 1.5, "end": 2.5},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("diarize: response sent")
}

func main() {
	http.HandleFunc("/transcribe", transcribeHandler)
	http.HandleFunc("/diarize", diarizeHandler)

	port := ":9000"
	log.Printf("Mock services starting on port %s", port)
	log.Printf("Transcription endpoint: http://localhost%s/transcribe", port)
	log.Printf("Diarization endpoint:   http://localhost%s/diarize", port)

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

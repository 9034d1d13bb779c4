// Command callclient plays mu-law audio into the voice agent over the media
// stream protocol and prints what the agent sends back.
package main

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"ai-voice-agent-service/internal/api/media"
)

// Minimum WAV header size
const wavHeaderSize = 44

// WAVE format tag for G.711 mu-law
const wavFormatMulaw = 7

// 20ms of 8kHz mu-law = 160 bytes
const frameSize = 160
const frameInterval = 20 * time.Millisecond

func main() {
	audioFile := flag.String("audio", "", "Path to 8kHz mu-law audio (WAV or raw). Empty sends a synthetic tone")
	serverURL := flag.String("server", "ws://localhost:3000/voice/stream", "Media stream websocket URL")
	callSid := flag.String("call", "CA-test-"+time.Now().Format("150405"), "Call SID")
	seconds := flag.Int("seconds", 4, "Length of the synthetic tone in seconds")
	linger := flag.Duration("linger", 3*time.Second, "Time to wait for replies before sending stop")
	flag.Parse()

	audio, err := loadAudio(*audioFile, *seconds)
	if err != nil {
		log.Fatalf("Failed to load audio: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *serverURL)

	done := make(chan struct{})
	go printReplies(conn, done)

	streamSid := "MZ-" + *callSid
	send := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			log.Fatalf("Failed to encode message: %v", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Fatalf("Failed to send message: %v", err)
		}
	}

	send(media.InboundMessage{Event: "connected", Protocol: "Call", Version: "1.0.0"})
	send(media.InboundMessage{
		Event:          "start",
		SequenceNumber: "1",
		StreamSid:      streamSid,
		Start: &media.StartPayload{
			StreamSid:        streamSid,
			CallSid:          *callSid,
			Tracks:           []string{"inbound"},
			CustomParameters: map[string]string{"callSid": *callSid, "from": "+15550000000"},
			MediaFormat:      &media.MediaFormat{Encoding: "audio/x-mulaw", SampleRate: 8000, Channels: 1},
		},
	})

	log.Printf("Streaming %d bytes: callSid=%s streamSid=%s", len(audio), *callSid, streamSid)

	start := time.Now()
	var chunk int
	for off := 0; off < len(audio); off += frameSize {
		end := min(off+frameSize, len(audio))
		chunk++
		send(media.InboundMessage{
			Event:          "media",
			SequenceNumber: fmt.Sprint(chunk + 1),
			StreamSid:      streamSid,
			Media: &media.MediaPayload{
				Track:     "inbound",
				Chunk:     fmt.Sprint(chunk),
				Timestamp: fmt.Sprint(time.Since(start).Milliseconds()),
				Payload:   base64.StdEncoding.EncodeToString(audio[off:end]),
			},
		})
		if chunk%50 == 0 {
			log.Printf("Sent frame %d (%dms)", chunk, time.Since(start).Milliseconds())
		}
		// Simulate real-time streaming
		time.Sleep(frameInterval)
	}

	log.Printf("Finished streaming: %d frames in %v, waiting %v for replies", chunk, time.Since(start), *linger)
	time.Sleep(*linger)

	send(media.InboundMessage{Event: "stop", StreamSid: streamSid, Stop: &media.StopPayload{CallSid: *callSid}})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case <-done:
	case <-time.After(time.Second):
	}
	log.Printf("Call finished: callSid=%s", *callSid)
}

func printReplies(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg media.OutboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Unreadable reply: %s", data)
			continue
		}
		switch {
		case msg.Media != nil:
			audio, _ := base64.StdEncoding.DecodeString(msg.Media.Payload)
			log.Printf("<- media: %d bytes (%.1fs)", len(audio), float64(len(audio))/8000)
		case msg.Mark != nil:
			log.Printf("<- mark: %s", msg.Mark.Name)
		default:
			log.Printf("<- %s", msg.Event)
		}
	}
}

// loadAudio reads a mu-law WAV or raw file. Without a path it returns a tone
// that is not mistaken for silence.
func loadAudio(path string, seconds int) ([]byte, error) {
	if path == "" {
		tone := make([]byte, seconds*8000)
		for i := range tone {
			tone[i] = byte(0x10 + i%0x40)
		}
		return tone, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return data, nil
	}

	audioFormat := binary.LittleEndian.Uint16(data[20:22])
	numChannels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d", audioFormat, numChannels, sampleRate)

	if audioFormat != wavFormatMulaw {
		return nil, fmt.Errorf("only mu-law WAV is supported, got format %d", audioFormat)
	}
	if sampleRate != 8000 || numChannels != 1 {
		log.Printf("Warning: expected 8000 Hz mono, got %d Hz with %d channels", sampleRate, numChannels)
	}
	return wavData(data), nil
}

// wavData returns the payload of the data chunk. Non-PCM files usually carry
// extra chunks, so the header is not always 44 bytes.
func wavData(data []byte) []byte {
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		off += 8
		if id == "data" {
			return data[off:min(off+size, len(data))]
		}
		off += size + size%2
	}
	return data[wavHeaderSize:]
}

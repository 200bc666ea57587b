package livestream

import (
	"context"
	"net/url"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	maxRetries     = 10
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second
	readTimeout    = 10 * time.Second
	pingInterval   = 30 * time.Second
)

// Manage websocket connection and call funcToCall for each sample.
// Returns when ctx is done or after maxRetries failed connection attempts.
func StartListener(ctx context.Context, host string, funcToCall func(sample *types.Sample)) {
	// WebSocket server URL
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}

	retryCount := 0

	for {
		if ctx.Err() != nil {
			log.Println("Shutdown requested, stopping listener")
			return
		}

		// Calculate retry delay with exponential backoff
		retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}

		if retryCount > 0 {
			log.Printf("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, maxRetries)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				log.Println("Shutdown requested during retry wait")
				return
			}
		}

		log.Printf("Connecting to %s", u.String())

		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			log.Printf("Connection failed: %v", err)
			retryCount++
			if retryCount >= maxRetries {
				log.Printf("Max retries (%d) reached. Giving up.", maxRetries)
				return
			}
			continue
		}

		log.Println("Connected! Accepting IMU samples.")

		// Reset retry count on successful connection
		retryCount = 0

		connectionBroken := handleConnection(ctx, c, funcToCall)

		c.Close()

		if !connectionBroken {
			return
		}

		log.Println("Connection lost, will retry...")
	}
}

// handleConnection reads samples until the connection breaks (true) or ctx is done (false).
// The reader goroutine has exited when it returns.
func handleConnection(
	ctx context.Context,
	c *websocket.Conn,
	funcToCall func(sample *types.Sample),
) bool {
	done := make(chan struct{})

	// Samples arrive many times per second; silence means a dead link
	c.SetReadDeadline(time.Now().Add(readTimeout))

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				} else {
					log.Printf("Connection closed: %v", err)
				}
				return
			}

			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				log.Debugf("Received unexpected message type: %d", messageType)
				continue
			}
			if sample := types.SampleFromJsonBytes(message); sample != nil {
				funcToCall(sample)
			} else {
				log.Printf("Failed to parse IMU sample: %s", string(message))
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				log.Printf("Failed to send ping: %v", err)
			}
		case <-done:
			return true
		case <-ctx.Done():
			log.Println("Shutdown requested, closing connection...")

			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Error sending close message:", err)
			}

			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
				// Unblock the reader, funcToCall must not run after we return
				c.Close()
				<-done
			}
			return false
		}
	}
}

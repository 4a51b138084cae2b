package chathub

import (
	"encoding/json"
	"log"

	"cipherchat/backend/internal/secure"
)

// DeliveryReport records the outcome of one broadcast.
type DeliveryReport struct {
	Delivered []string
	Failed    []string
}

// Broadcaster fans an event out to every current member of a room. The
// member snapshot is taken under the registry's lock so a broadcast never
// reaches a just-departed member nor skips a just-arrived one; the sends
// themselves happen outside the lock.
type Broadcaster struct {
	registry *Registry
	codec    *secure.Codec
}

// NewBroadcaster wires a Broadcaster to the registry and the process codec.
func NewBroadcaster(registry *Registry, codec *secure.Codec) *Broadcaster {
	return &Broadcaster{registry: registry, codec: codec}
}

// Broadcast encrypts event once and offers it to every member of the room
// except exclude. A failed delivery (full buffer, closed client) never stops
// delivery to the remaining members; the failed client is closed so its
// handler runs the normal disconnect path, and it is reported in the result.
func (b *Broadcaster) Broadcast(roomName string, event interface{}, exclude string) DeliveryReport {
	var report DeliveryReport

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: marshal broadcast for room %s: %v", roomName, err)
		return report
	}
	frame, err := b.codec.Encrypt(payload)
	if err != nil {
		log.Printf("ERROR: encrypt broadcast for room %s: %v", roomName, err)
		return report
	}

	for _, member := range b.registry.MembersOf(roomName) {
		if member == exclude {
			continue
		}
		client, ok := b.registry.ClientOf(member)
		if !ok {
			continue
		}
		if client.Send(frame) {
			report.Delivered = append(report.Delivered, member)
			continue
		}
		report.Failed = append(report.Failed, member)
		log.Printf("ERROR: dropping unresponsive client %s in room %s", member, roomName)
		// Closing the connection makes the client's own handler observe the
		// failure and run its teardown (registry leave + user_left).
		go client.Close()
	}
	return report
}

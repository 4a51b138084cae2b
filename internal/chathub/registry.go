package chathub

import (
	"errors"
	"sort"
	"sync"
)

// ErrAlreadyOnline is returned when a login races with an existing live
// session for the same username. The existing session is left untouched.
var ErrAlreadyOnline = errors.New("user already online")

type session struct {
	client Client
	room   string // empty until the first join
}

// roomState tracks membership keyed by username. seq increases on every join
// so member snapshots can be ordered by join time while add and remove stay
// O(1).
type roomState struct {
	nextSeq uint64
	members map[string]uint64
}

// Registry is the single source of truth for who is online and which room
// they are in. Sessions and room membership are guarded by one mutex because
// they must change together: every member of a room has a live session whose
// active room is that room.
//
// The mutex is never held across store I/O or socket writes.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*session
	rooms     map[string]*roomState
	roomLocks map[string]*sync.Mutex
}

// NewRegistry creates a registry with the given rooms pre-seeded. Rooms are
// otherwise created lazily on first join and never deleted.
func NewRegistry(seedRooms []string) *Registry {
	r := &Registry{
		sessions:  make(map[string]*session),
		rooms:     make(map[string]*roomState),
		roomLocks: make(map[string]*sync.Mutex),
	}
	for _, name := range seedRooms {
		r.rooms[name] = &roomState{members: make(map[string]uint64)}
	}
	return r
}

// Login binds a username to its connection. It fails with ErrAlreadyOnline
// if a live session for that username exists; duplicate logins are rejected
// rather than silently replacing the prior session.
func (r *Registry) Login(username string, c Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[username]; ok {
		return ErrAlreadyOnline
	}
	r.sessions[username] = &session{client: c}
	return nil
}

// JoinRoom atomically moves the user out of their previous room (if any) and
// into the named room, creating it when absent. It returns the new room's
// member list, plus the previous room and its remaining members so the
// caller can notify both sides of the switch.
func (r *Registry) JoinRoom(username, roomName string) (joined []string, prevRoom string, prevRemaining []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[username]
	if !ok {
		return nil, "", nil, errors.New("no session for " + username)
	}

	if sess.room == roomName {
		return r.membersLocked(roomName), "", nil, nil
	}

	if prev := sess.room; prev != "" {
		delete(r.rooms[prev].members, username)
		prevRoom = prev
		prevRemaining = r.membersLocked(prev)
	}

	room, ok := r.rooms[roomName]
	if !ok {
		room = &roomState{members: make(map[string]uint64)}
		r.rooms[roomName] = room
	}
	room.members[username] = room.nextSeq
	room.nextSeq++
	sess.room = roomName

	return r.membersLocked(roomName), prevRoom, prevRemaining, nil
}

// Leave removes the session and its room membership entirely. It is
// idempotent: a second call for the same disconnect reports ok=false.
func (r *Registry) Leave(username string) (room string, remaining []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[username]
	if !exists {
		return "", nil, false
	}
	delete(r.sessions, username)

	if sess.room != "" {
		delete(r.rooms[sess.room].members, username)
		return sess.room, r.membersLocked(sess.room), true
	}
	return "", nil, true
}

// MembersOf returns a join-ordered snapshot of a room's member usernames.
func (r *Registry) MembersOf(roomName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersLocked(roomName)
}

// ClientOf returns the live connection for a username, if any.
func (r *Registry) ClientOf(username string) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[username]
	if !ok {
		return nil, false
	}
	return sess.client, true
}

// RoomNames lists all known rooms, seeded and lazily created alike.
func (r *Registry) RoomNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoomLock returns a per-room mutex used to serialize persist-then-broadcast
// for messages, so all members of one room observe messages in the order the
// server processed them. Cross-room ordering is deliberately unspecified.
func (r *Registry) RoomLock(roomName string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.roomLocks[roomName]
	if !ok {
		lock = &sync.Mutex{}
		r.roomLocks[roomName] = lock
	}
	return lock
}

func (r *Registry) membersLocked(roomName string) []string {
	room, ok := r.rooms[roomName]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(room.members))
	for name := range room.members {
		members = append(members, name)
	}
	sort.Slice(members, func(i, j int) bool {
		return room.members[members[i]] < room.members[members[j]]
	})
	return members
}

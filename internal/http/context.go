package http

import "context"

type contextKey string

const (
	roomNameContextKey contextKey = "room_name"
	groupIDContextKey  contextKey = "group_id"
)

// ContextWithRoomName injects the room name resolved from the request path.
func ContextWithRoomName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, roomNameContextKey, name)
}

// RoomNameFromContext extracts a room name previously associated with the context.
func RoomNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(roomNameContextKey).(string)
	return name, ok
}

// ContextWithGroupID injects the recurrence group id resolved from the request path.
func ContextWithGroupID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, groupIDContextKey, id)
}

// GroupIDFromContext extracts a recurrence group id previously associated with the context.
func GroupIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(groupIDContextKey).(string)
	return id, ok
}

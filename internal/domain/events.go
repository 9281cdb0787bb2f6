// Package domain defines events for the event-driven architecture.
// Events replace the callback system and enable loose coupling between components.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Library events
	EventTrackAdded     EventType = "track.added"
	EventTrackRemoved   EventType = "track.removed"
	EventTrackPlayed    EventType = "track.played"
	EventTrackError     EventType = "track.error"
	EventLibraryChanged EventType = "library.changed"
	EventLibraryCleared EventType = "library.cleared"

	// Library scanning events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
	EventScanCancelled EventType = "scan.cancelled"
	EventScanError     EventType = "scan.error"

	// View events
	EventViewChanged EventType = "view.changed"

	// Recommendation events
	EventRecommendationsChanged    EventType = "recommendations.changed"
	EventRecommendationPlayRequest EventType = "recommendation.play_requested"

	// Playlist/queue events
	EventPlaylistUpdated EventType = "playlist.updated"
	EventQueueChanged    EventType = "queue.changed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackAddedEvent is published when a track enters the library.
type TrackAddedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackAddedEvent) Type() EventType {
	return EventTrackAdded
}

// NewTrackAddedEvent creates a new TrackAddedEvent.
func NewTrackAddedEvent(track Track) TrackAddedEvent {
	return TrackAddedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackRemovedEvent is published when a track leaves the library.
type TrackRemovedEvent struct {
	baseEvent
	Path string
}

// Type returns the event type.
func (e TrackRemovedEvent) Type() EventType {
	return EventTrackRemoved
}

// NewTrackRemovedEvent creates a new TrackRemovedEvent.
func NewTrackRemovedEvent(path string) TrackRemovedEvent {
	return TrackRemovedEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
	}
}

// TrackPlayedEvent is published when a track's play statistics are updated.
type TrackPlayedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackPlayedEvent) Type() EventType {
	return EventTrackPlayed
}

// NewTrackPlayedEvent creates a new TrackPlayedEvent.
func NewTrackPlayedEvent(track Track) TrackPlayedEvent {
	return TrackPlayedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackErrorEvent is published when a file cannot be opened.
type TrackErrorEvent struct {
	baseEvent
	Path   string
	Status MediaStatus
	Error  error
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType {
	return EventTrackError
}

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(path string, err error) TrackErrorEvent {
	return TrackErrorEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
		Status:    StatusError,
		Error:     err,
	}
}

// LibraryChangedEvent is published after any mutation of the library index.
type LibraryChangedEvent struct {
	baseEvent
	Stats LibraryStats
}

// Type returns the event type.
func (e LibraryChangedEvent) Type() EventType {
	return EventLibraryChanged
}

// NewLibraryChangedEvent creates a new LibraryChangedEvent.
func NewLibraryChangedEvent(stats LibraryStats) LibraryChangedEvent {
	return LibraryChangedEvent{
		baseEvent: newBaseEvent(),
		Stats:     stats,
	}
}

// LibraryClearedEvent is published when the library is emptied.
type LibraryClearedEvent struct {
	baseEvent
	Removed int
}

// Type returns the event type.
func (e LibraryClearedEvent) Type() EventType {
	return EventLibraryCleared
}

// NewLibraryClearedEvent creates a new LibraryClearedEvent.
func NewLibraryClearedEvent(removed int) LibraryClearedEvent {
	return LibraryClearedEvent{
		baseEvent: newBaseEvent(),
		Removed:   removed,
	}
}

// ScanStartedEvent is published when a library scan starts.
type ScanStartedEvent struct {
	baseEvent
	Path string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(path string) ScanStartedEvent {
	return ScanStartedEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
	}
}

// ScanProgressEvent is published periodically during a library scan.
type ScanProgressEvent struct {
	baseEvent
	Progress ScanProgress
}

// Type returns the event type.
func (e ScanProgressEvent) Type() EventType {
	return EventScanProgress
}

// NewScanProgressEvent creates a new ScanProgressEvent.
func NewScanProgressEvent(progress ScanProgress) ScanProgressEvent {
	return ScanProgressEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// ScanCompletedEvent is published when a library scan completes.
type ScanCompletedEvent struct {
	baseEvent
	Result ScanResult
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(result ScanResult) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent: newBaseEvent(),
		Result:    result,
	}
}

// ScanCancelledEvent is published when a library scan is canceled.
type ScanCancelledEvent struct {
	baseEvent
	Reason string
}

// Type returns the event type.
func (e ScanCancelledEvent) Type() EventType {
	return EventScanCancelled
}

// NewScanCancelledEvent creates a new ScanCancelledEvent.
func NewScanCancelledEvent(reason string) ScanCancelledEvent {
	return ScanCancelledEvent{
		baseEvent: newBaseEvent(),
		Reason:    reason,
	}
}

// ScanErrorEvent is published when a scan cannot run at all.
type ScanErrorEvent struct {
	baseEvent
	Path   string
	Status MediaStatus
	Error  error
}

// Type returns the event type.
func (e ScanErrorEvent) Type() EventType {
	return EventScanError
}

// NewScanErrorEvent creates a new ScanErrorEvent.
func NewScanErrorEvent(path string, err error) ScanErrorEvent {
	return ScanErrorEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
		Status:    StatusError,
		Error:     err,
	}
}

// ViewChangedEvent is published after a library view recomputes its displayed set.
type ViewChangedEvent struct {
	baseEvent
	Search    string
	Filter    string
	Sort      string
	Displayed int
}

// Type returns the event type.
func (e ViewChangedEvent) Type() EventType {
	return EventViewChanged
}

// NewViewChangedEvent creates a new ViewChangedEvent.
func NewViewChangedEvent(search, filter, sort string, displayed int) ViewChangedEvent {
	return ViewChangedEvent{
		baseEvent: newBaseEvent(),
		Search:    search,
		Filter:    filter,
		Sort:      sort,
		Displayed: displayed,
	}
}

// RecommendationsChangedEvent is published whenever the recommendation cache changes.
type RecommendationsChangedEvent struct {
	baseEvent
	Count int
	Added int
}

// Type returns the event type.
func (e RecommendationsChangedEvent) Type() EventType {
	return EventRecommendationsChanged
}

// NewRecommendationsChangedEvent creates a new RecommendationsChangedEvent.
func NewRecommendationsChangedEvent(count, added int) RecommendationsChangedEvent {
	return RecommendationsChangedEvent{
		baseEvent: newBaseEvent(),
		Count:     count,
		Added:     added,
	}
}

// RecommendationPlayRequestedEvent asks the player to stream a recommended song.
type RecommendationPlayRequestedEvent struct {
	baseEvent
	Recommendation Recommendation
}

// Type returns the event type.
func (e RecommendationPlayRequestedEvent) Type() EventType {
	return EventRecommendationPlayRequest
}

// NewRecommendationPlayRequestedEvent creates a new RecommendationPlayRequestedEvent.
func NewRecommendationPlayRequestedEvent(rec Recommendation) RecommendationPlayRequestedEvent {
	return RecommendationPlayRequestedEvent{
		baseEvent:      newBaseEvent(),
		Recommendation: rec,
	}
}

// PlaylistUpdatedEvent is published when a named playlist changes.
type PlaylistUpdatedEvent struct {
	baseEvent
	Playlist Playlist
}

// Type returns the event type.
func (e PlaylistUpdatedEvent) Type() EventType {
	return EventPlaylistUpdated
}

// NewPlaylistUpdatedEvent creates a new PlaylistUpdatedEvent.
func NewPlaylistUpdatedEvent(playlist Playlist) PlaylistUpdatedEvent {
	return PlaylistUpdatedEvent{
		baseEvent: newBaseEvent(),
		Playlist:  playlist,
	}
}

// QueueChangedEvent is published when the play-next queue changes.
type QueueChangedEvent struct {
	baseEvent
	Queue []Track
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType {
	return EventQueueChanged
}

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(queue []Track) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent: newBaseEvent(),
		Queue:     queue,
	}
}

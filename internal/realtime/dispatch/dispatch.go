// Package dispatch is the outbound notification facade business logic
// calls into. Every operation targets a room derived from domain ids and
// is fire-and-forget.
package dispatch

import (
	"github.com/smallbiznis/nextway/internal/realtime/event"
	"github.com/smallbiznis/nextway/internal/realtime/hub"
	"github.com/smallbiznis/nextway/internal/realtime/room"
	"go.uber.org/zap"
)

type Dispatcher struct {
	hub *hub.Hub
	log *zap.Logger
}

func NewDispatcher(h *hub.Hub, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		hub: h,
		log: log.Named("realtime.dispatch"),
	}
}

// NewJob announces a posting to every connection. Global on purpose:
// every seeker should see new postings.
func (d *Dispatcher) NewJob(payload any) {
	d.broadcastAll(event.NotifyNewJob, payload)
}

// ApplicationStatus notifies the applicant's personal room.
func (d *Dispatcher) ApplicationStatus(userID string, payload any) {
	d.broadcast(room.Personal(room.ActorUser, userID), event.NotifyApplicationStatus, payload)
}

// NewApplication announces a received application to every connection.
// TODO: scope this to the hiring company's room once clients subscribe
// to it on the application list view.
func (d *Dispatcher) NewApplication(payload any) {
	d.broadcastAll(event.NotifyNewApplication, payload)
}

// VideoCallInvite notifies the invited user's personal room.
func (d *Dispatcher) VideoCallInvite(userID string, payload any) {
	d.broadcast(room.Personal(room.ActorUser, userID), event.NotifyVideoCall, payload)
}

// SubscriptionUpdated pushes a lifecycle transition into the user's
// subscription room.
func (d *Dispatcher) SubscriptionUpdated(userID string, update event.SubscriptionUpdate) {
	d.broadcast(room.Subscription(userID), event.SubscriptionUpdated, update)
}

func (d *Dispatcher) broadcast(key, name string, payload any) {
	env, err := event.NewEnvelope(name, payload)
	if err != nil {
		d.log.Warn("dropping undeliverable payload", zap.String("event", name), zap.Error(err))
		return
	}
	d.hub.Broadcast(key, env)
}

func (d *Dispatcher) broadcastAll(name string, payload any) {
	env, err := event.NewEnvelope(name, payload)
	if err != nil {
		d.log.Warn("dropping undeliverable payload", zap.String("event", name), zap.Error(err))
		return
	}
	d.hub.BroadcastAll(env)
}

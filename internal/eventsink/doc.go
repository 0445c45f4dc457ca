// Package eventsink forwards build tree events to observers outside the
// process.
//
// A Forwarder subscribes to an event.Bus and re-emits every event, named by
// its "category.action" type, through an Emitter. Dial returns an Emitter
// backed by a Socket.IO client, so a dashboard can watch registrations and
// lock traffic live.
package eventsink

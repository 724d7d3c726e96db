// Package events provides a small fan-out broadcaster used to deliver
// printer lifecycle events and discovery announcements to any number of
// subscribers without letting a slow subscriber block a producer.
package events

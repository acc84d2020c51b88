// Package main provides the entry point of tvplayer, a video player daemon
// for a living room screen. It browses a media library, plays files through
// mpv and remembers the position of every file so playback can resume later.
// Navigation keys arrive through a Fiber web interface that works both as an
// HTML remote and as a JSON API; positions and preferences are kept with gorm.
package main

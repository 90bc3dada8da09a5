// Package audio converts received voice notes into the format the
// transcription service accepts. Container formats go through an external
// ffmpeg binary via scoped temporary files; raw G.711 telephony audio is
// decoded in process and wrapped in a WAV header.
package audio

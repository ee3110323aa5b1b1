// Package codec converts between wire frames and structured messages.
//
// The supervisor treats serialization as an opaque boundary: outbound
// payloads are encoded to text frames before transmission, inbound text
// frames are decoded back into a Message before dispatch. The default
// codec is JSON.
package codec

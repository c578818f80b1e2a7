// Package fpa decodes Fixposition FP_A ASCII messages into typed records.
//
// A line such as
//
//	FP,LLH,1,2231,227610.750000,47.3,8.5,450.1,0.01,0.01,0.04,0,0,0
//
// is split on commas into tokens. Token 0 is the message class, token 1 the
// header and token 2 the version. The (header, version) pair selects a decoder
// and an exact token count from a static registry; decoders read the
// remaining tokens at fixed positions.
//
// Decoding is stateless. Decode and DecodeLine may be called concurrently.
// Framing ("$" prefix, "*XX" checksum, line terminator) is handled by the
// transport before lines reach this package.
package fpa

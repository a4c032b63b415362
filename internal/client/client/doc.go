// Package client builds the authenticated handle used to call the remote
// asset store.
//
// # Overview
//
//  1. RemoteClient is the contract the services depend on: Store, Status,
//     Ping and Close.
//  2. GRPCClient implements it over gRPC with the json codec. A unary
//     interceptor attaches the delegation, the ingress expiry, and an ed25519
//     signature made with the session key to every outgoing call.
//  3. Factory turns a delegated identity into a ready GRPCClient, resolving
//     the endpoint from the network mode and bootstrapping the root key on
//     local networks.
//
// # Error Handling
//
// gRPC status codes are mapped to ErrUnauthorized and ErrUnavailable.
// Anything that prevents a client from being built is wrapped in
// common.ErrClientBuildFailed.
package client

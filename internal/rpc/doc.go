// Package rpc correlates JSON-RPC requests with their responses.
//
// Every request gets an id from a shared IDCounter. Registry.Submit serialises the body
// and returns a Handle whose result is delivered exactly once, either by Complete with
// the raw response body or by Fail with a transport error. Cancel detaches a waiting
// caller without affecting the server.
//
//	ids := rpc.NewIDCounter()
//	reg := rpc.NewRegistry(ids)
//	h, _ := reg.Submit("getBalance", pubkey.String())
//	reg.Exchange(ctx, rpc.NewHTTPTransport(endpoint), h)
//	res := h.Wait(ctx)
package rpc

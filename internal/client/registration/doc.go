// Package registration drives account signup: collect the form, register,
// verify the mobile number and email, offer an avatar upload and leave the
// client with one stored session.
//
// The state machine itself lives in state.go (Advance). Controller is the
// surface a front-end renders from: it validates input, calls the gateway,
// runs the resend countdown and turns every failure into either a field
// error or a banner in its Snapshot.
//
// Typical use:
//
//	c := registration.New(registration.Options{Gateway: gw, Store: store})
//	defer c.Abandon()
//	c.SetEmail("ayse@example.com")
//	...
//	if err := c.SubmitInfo(ctx); err != nil {
//	    render(c.Snapshot())
//	}
package registration

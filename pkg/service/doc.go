// Package service ties the protocol engine, the profile set and the state
// store into the flows a configuration tool runs against one mouse.
//
// A MouseService connects to the device, reads its live settings into the
// selected profile, writes a profile back, persists the profile set per
// product id, and optionally restores the session after an unplug.
//
// Usage:
//
//	svc := service.New(transport.NewHID(transport.DefaultHIDConfig()), service.DefaultConfig())
//	svc.OnEvent(func(e service.Event) { fmt.Println(e.Type) })
//	info, err := svc.Connect(ctx)
//	...
//	svc.Manager().UpdateDPIStage(0, func(s *profile.DPIStage) { s.X, s.Y = 800, 800 })
//	err = svc.ApplyCurrent(ctx)
package service

// Package discovery publishes and finds OTA stubs over mDNS.
//
// The server side registers the check-in endpoint as an "_http._tcp" service
// with TXT records describing the session URL:
//
//	path=/
//	ws=ws://192.168.1.5:8000/ws
//	version=3
//
// The probe side browses for that service type and keeps only entries that
// carry a "ws" record, so unrelated HTTP services on the LAN are ignored.
//
// # Usage Example
//
//	adv, err := discovery.Advertise(discovery.Advertisement{
//	    Instance:     "otastub",
//	    Port:         8000,
//	    WebSocketURL: cfg.WebSocketURL(),
//	    Version:      3,
//	})
//	if err != nil {
//	    return err
//	}
//	defer adv.Shutdown()
//
//	svc, err := discovery.NewScanner().Find(ctx, "otastub")
package discovery

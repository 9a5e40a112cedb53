package resolver

import (
	"matchgate/backend"
	"matchgate/fault"
)

// PortPolicy reduces a backend-reported ordered port list to the one port
// clients should be sent to. It is a substitutable policy so a deployment
// can switch selection strategies without touching resolution logic.
type PortPolicy func(ports []backend.Port) (backend.Port, error)

// FirstPort selects the first entry in the backend's ordered port list.
func FirstPort(ports []backend.Port) (backend.Port, error) {
	if len(ports) == 0 {
		return backend.Port{}, fault.New(fault.Backend, "server reported no exposed ports")
	}
	return ports[0], nil
}

// PortByName selects the port with the given logical name.
func PortByName(name string) PortPolicy {
	return func(ports []backend.Port) (backend.Port, error) {
		for _, p := range ports {
			if p.Name == name {
				return p, nil
			}
		}
		return backend.Port{}, fault.New(fault.Backend, "server exposes no port named %q", name)
	}
}

package kernel

// Endpoint identifies a message destination. Every task owns one.
type Endpoint uint8

const (
	EPButtonISR Endpoint = iota
	EPDecoder
	EPLCD
	EPTX
	EPRX
	EPDMA
	EPWatchdog

	NumEndpoints
)

func (e Endpoint) String() string {
	switch e {
	case EPButtonISR:
		return "button"
	case EPDecoder:
		return "decoder"
	case EPLCD:
		return "lcd"
	case EPTX:
		return "tx"
	case EPRX:
		return "rx"
	case EPDMA:
		return "dma"
	case EPWatchdog:
		return "watchdog"
	default:
		return "unknown"
	}
}

package scan

import (
	"fmt"

	"tappinpay/internal/domain"
)

func (m Mode) label() string {
	if m == ModeNFC {
		return "NFC"
	}
	return "Camera"
}

// message is the shopper-facing text for an outcome.
func message(m Mode, o domain.Outcome) string {
	name := o.Candidate
	if o.Product != nil && o.Product.Name != "" {
		name = o.Product.Name
	}
	switch o.Kind {
	case domain.OutcomeAdded:
		if m == ModeNFC {
			return fmt.Sprintf("Added %s to cart via NFC!", name)
		}
		return fmt.Sprintf("Added %s to cart!", name)
	case domain.OutcomeDuplicate:
		return fmt.Sprintf("%s is already in your cart!", name)
	case domain.OutcomeNotFound:
		return fmt.Sprintf("Product %s not found", o.Candidate)
	case domain.OutcomeInvalidTag:
		return "Invalid NFC tag - No product information found"
	case domain.OutcomeReadError:
		return "Error reading tag. Please try again."
	case domain.OutcomeActivated:
		if m == ModeNFC {
			return "NFC Reader Active - Tap an NFC tag"
		}
		return "QR Scanner activated!"
	case domain.OutcomePermissionDenied:
		return fmt.Sprintf("%s access denied. Please allow %s permissions.", m.label(), m.label())
	case domain.OutcomeUnsupported:
		return fmt.Sprintf("%s is not supported on this device or browser.", m.label())
	case domain.OutcomeDisabled:
		if m == ModeNFC {
			return "NFC is disabled. Please enable NFC in device settings."
		}
		return "Camera is disabled. Please enable the camera and try again."
	case domain.OutcomeInUse:
		return fmt.Sprintf("%s is already in use by another application.", m.label())
	case domain.OutcomeDeviceError:
		return fmt.Sprintf("Could not start the %s reader.", m.label())
	case domain.OutcomeInactive:
		return "Scanner is not active"
	}
	return ""
}

// noteKey keys a notification so repeats of the same event collapse.
func noteKey(m Mode, o domain.Outcome) string {
	if o.Candidate == "" {
		return fmt.Sprintf("%s-%s", m, o.Kind)
	}
	return fmt.Sprintf("%s-%s-%s", m, o.Kind, o.Candidate)
}

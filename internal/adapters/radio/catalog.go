package radio

// Service result codes. CodeOK is a synthetic internal sentinel, never sent
// by the service. CodeProtocol marks a response the client could not even
// classify (missing or malformed status field).
const (
	CodeOK          = -1
	CodeProtocol    = -2
	CodeServerError = 0
	CodeNetworkDown = 9000

	CodeMaintenance      = 1000
	CodeInvalidAuthToken = 1001
	CodeStationNotFound  = 1006
	CodeMaxStations      = 1005
)

const genericErrorMessage = "An unexpected error occurred"

// Class partitions result codes by how the gateway must handle them.
type Class int

const (
	// ClassTerminal failures are surfaced immediately, never retried.
	ClassTerminal Class = iota
	// ClassRetryAuth failures trigger a silent re-login before the
	// original call is re-issued.
	ClassRetryAuth
	// ClassRetryTransient failures re-issue the original call directly.
	ClassRetryTransient
)

// Classify maps a result code to its handling class.
func Classify(code int) Class {
	switch code {
	case CodeInvalidAuthToken:
		return ClassRetryAuth
	case CodeNetworkDown, CodeServerError:
		return ClassRetryTransient
	default:
		return ClassTerminal
	}
}

// Describe returns the user-facing description for a service result code.
func Describe(code int) string {
	switch code {
	case CodeOK:
		return "ok"
	case 12:
		return "Sorry, this service is not available in your country."
	case 1000:
		return "The service is conducting system maintenance. You will be able to listen to existing stations while they work on their systems, but you won't be able to create new stations, submit feedback or edit your account in any way until the maintenance is complete. Thanks for your patience."
	case 1001:
		return "Invalid auth token (auth token expired, need to re-authenticate)"
	case 1002:
		return "Invalid login (username/password invalid)"
	case 1003:
		return "Your account has been suspended or disabled. Contact support for further assistance."
	case 1004:
		return "Your account is not authorized to perform that action."
	case 1005:
		return "Max stations reached. You may only create up to 100 stations."
	case 1006:
		return "Station does not exist; Invalid station or station has been deleted."
	case 1007:
		return "Complimentary period already used for this user/device."
	case 1009:
		return "Device not activated. There was a problem activating this device. Please make sure you visit the URL to enter your activation code before hitting the DONE button."
	case 1010:
		return "Partner not authorized to perform action"
	case 1011:
		return "Username is malformed."
	case 1012:
		return "Password is malformed."
	case 1013:
		return "Username provided has already been used."
	case 1014:
		return "Device is already associated to another account."
	case 1015:
		return "Values supplied exceed maximum length allowed."
	case 1016:
		return "Email Address is invalid."
	case 1017:
		return "Station name is too long."
	case 1020:
		return "Explicit PIN contains invalid characters (allowed characters are a-zA-Z0-9)"
	case 1021:
		return "Explicit PIN has not been set yet."
	case 1022:
		return "Explicit PIN has already been set."
	case 1023:
		return "Device Model is invalid."
	case 1024:
		return "Zip code is invalid."
	case 1025:
		return "Birth year is invalid."
	case 1026:
		return "Age-restricted! User too young to use service."
	case 1027:
		return "Gender value is invalid."
	case 1028:
		return "Country code is invalid."
	case 1029:
		return "User account not found."
	case 1031:
		return "Not enough stations to create a QuickMix."
	case 1033:
		return "Device model provided has already been used."
	case 1034:
		return "Device model is disabled."
	case 9000:
		return "Unable to reach the service. Please check your connection or try again later."
	default:
		return genericErrorMessage
	}
}

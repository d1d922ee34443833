package consts

// Role wire values. The REST and push payloads carry roles as numbers,
// role names are used in tokens and user records.
const (
	RoleUser     uint8 = 1
	RoleMerchant uint8 = 2
	RoleAdmin    uint8 = 3
)

const (
	RoleNameUser     = "user"
	RoleNameMerchant = "merchant"
	RoleNameAdmin    = "admin"
)

// RoleNumber maps a role name to its wire value. Unknown names map to 0.
func RoleNumber(name string) uint8 {
	switch name {
	case RoleNameUser:
		return RoleUser
	case RoleNameMerchant:
		return RoleMerchant
	case RoleNameAdmin:
		return RoleAdmin
	}
	return 0
}

// RoleName maps a wire value back to its role name.
func RoleName(n uint8) string {
	switch n {
	case RoleUser:
		return RoleNameUser
	case RoleMerchant:
		return RoleNameMerchant
	case RoleAdmin:
		return RoleNameAdmin
	}
	return ""
}

// Feedback target types. Feedback is addressed either to a merchant or to
// an administrator.
const (
	TargetMerchant uint8 = 1
	TargetAdmin    uint8 = 2
)

// TargetToRole converts a feedback target type into the role of the user
// behind it.
func TargetToRole(target uint8) uint8 {
	switch target {
	case TargetMerchant:
		return RoleMerchant
	case TargetAdmin:
		return RoleAdmin
	}
	return target
}

// Feedback status values.
const (
	StatusOpen       uint8 = 1
	StatusInProgress uint8 = 2
	StatusResolved   uint8 = 3
)

// Message content types.
const (
	SystemMessage uint8 = 0
	TextMessage   uint8 = 1
	ImageMessage  uint8 = 2
	ImagesMessage uint8 = 3
)

// Message read flags.
const (
	Unread uint8 = 0
	Read   uint8 = 1
)

// Push channel event kinds.
const (
	EventConnect        = "connect"
	EventDisconnect     = "disconnect"
	EventMessage        = "message"
	EventTyping         = "typing"
	EventRead           = "read"
	EventStatusChange   = "status_change"
	EventFeedbackDelete = "feedback_delete"
	EventNewFeedback    = "new_feedback"
)

// CodeSuccess is the application-level success code carried in the REST
// response envelope. Anything else is an application error.
const CodeSuccess = 200

// MaxMessageLength is the longest message content accepted from a composer.
const MaxMessageLength = 1000

// MaxTitleLength is the longest feedback title accepted.
const MaxTitleLength = 255

package common

// MaxUsernameLength bounds the username accepted by REGISTER.
const MaxUsernameLength = 64

// MaxEventDetailsLength bounds the details column of an audit event.
const MaxEventDetailsLength = 500

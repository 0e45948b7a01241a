package service

// MaxWriteAttempts exposes maxWriteAttempts to external tests.
const MaxWriteAttempts = maxWriteAttempts

package ir

// FormatVersion identifies the IR snapshot format. Bump when the
// canonical encoding of any declaration changes shape.
const FormatVersion = "varro-ir/1"

package repository

// Export for testing
var NullableString = nullableString
var NullableTime = nullableTime
var StringPtr = stringPtr
var TimePtr = timePtr
var FormatTime = formatTime
var ParseTime = parseTime

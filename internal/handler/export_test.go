package handler

// Export for testing
type Envelope = envelope
type ImageResponse = imageResponse
type ImageListResponse = imageListResponse
type BulkDeleteResponse = bulkDeleteResponse
type RegistrationResponse = registrationResponse
type RegistrationListResponse = registrationListResponse
type AuthResponseDTO = authResponse
type UserResponse = userResponse
type UserListResponse = userListResponse
type ArticleResponse = articleResponse
type ArticleListResponse = articleListResponse
type ArticleSearchResponse = articleSearchResponse
type ArticleStatisticsResponse = articleStatisticsResponse
type CategoryResponse = categoryResponse
type CategoryStatisticsResponse = categoryStatisticsResponse

var WriteServiceError = writeServiceError
var IDPtrToString = idPtrToString
var Itoa = itoa
var Itoa64 = itoa64

// Package services implements HTTP clients for the Book Haven client's remote collaborators.
//
// Two concrete clients are provided:
//
//   - [BooksService] : the Book Haven REST API ([Catalog] implementation).
//     Authenticated endpoints receive a bearer credential minted fresh per
//     request from the injected [CredentialSource]; the credential is borrowed
//     for one dispatch and never cached, so two simultaneous requests may carry
//     two different valid tokens.
//   - [ImageHost] : the third-party image-hosting endpoint used for book cover
//     uploads (multipart form, API-key scoped, returns a hosted URL).
//
// Failures are classified into the shared error taxonomy: read failures wrap
// [shared.ErrFetchFailed], write failures wrap [shared.ErrMutationFailed], and
// ownership rejections wrap [shared.ErrNotOwner] so callers can redirect away
// from edit surfaces. No request is retried automatically.
package services

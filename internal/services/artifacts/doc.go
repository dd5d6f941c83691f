// Package artifacts publishes finished episode files to a Supabase-style
// storage bucket. Uploads are optional: with no base URL configured the
// client stays disabled and episodes remain local only.
package artifacts

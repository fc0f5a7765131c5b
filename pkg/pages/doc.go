// Package pages holds the page objects of the course site and the per-session
// cache that hands them out.
//
// Home, Catalog and Subject pages are cached for the life of a session.
// CourseDetails pages are not: every course visit gets a fresh DetailsPage,
// because the previous one described a different document.
package pages

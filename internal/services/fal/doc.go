// Package fal wraps the fal.ai queue and storage APIs.
//
// Generation is asynchronous: Submit enqueues a job, Wait polls its status
// URL until COMPLETED, and Result decodes the response. GenerateImage and
// GenerateVideo chain the three. Upload pushes a local reference image to
// fal storage and Download saves a generated asset to disk.
package fal

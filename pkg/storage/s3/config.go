package s3

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/williamokano/bucketview/pkg/storage"
)

// clientOptions points the SDK at an S3-compatible endpoint. MinIO and most
// self-hosted stores need path-style addressing and reject the optional
// checksum trailers newer SDKs send by default.
func clientOptions(ep storage.Endpoint) func(*s3.Options) {
	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(ep.URL())
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	}
}

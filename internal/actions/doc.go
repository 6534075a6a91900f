// package actions implements the form submissions of the web app.
//
// Every exported method validates its input, performs the write and reports the outcome as a
// [models.Result] instead of an error, so handlers can render the result straight back into the submitting
// page. Unexpected failures are logged here and surface to the user as a generic message.
//
// Inputs are plain structs with form tags; [Bind] decodes posted form values into them.
package actions

package services

// Email template for a confirmed booking
const bookingConfirmedEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border: 1px solid #ddd; border-top: none; }
        .info-row { margin: 10px 0; padding: 10px; background-color: white; border-left: 3px solid #4CAF50; }
        .label { font-weight: bold; color: #555; }
        .value { color: #333; }
        .button { display: inline-block; padding: 12px 30px; margin: 20px 10px 10px 0; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px; }
        .footer { text-align: center; padding: 20px; color: #777; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Booking Confirmed</h1>
        </div>
        <div class="content">
            <p>Your reservation is confirmed.</p>

            <div class="info-row">
                <span class="label">Resource:</span>
                <span class="value">{{.ResourceName}}</span>
            </div>

            {{if .Title}}
            <div class="info-row">
                <span class="label">Title:</span>
                <span class="value">{{.Title}}</span>
            </div>
            {{end}}

            <div class="info-row">
                <span class="label">From:</span>
                <span class="value">{{.Start}}</span>
            </div>

            <div class="info-row">
                <span class="label">Until:</span>
                <span class="value">{{.End}}</span>
            </div>

            <a href="{{.DetailURL}}" class="button">View Booking</a>
        </div>
        <div class="footer">
            <p>CampusBook Scheduling &middot; Reservation {{.ReservationID}}</p>
        </div>
    </div>
</body>
</html>
`

// Email template for a booking awaiting approval
const bookingPendingEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #FF9800; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border: 1px solid #ddd; border-top: none; }
        .info-row { margin: 10px 0; padding: 10px; background-color: white; border-left: 3px solid #FF9800; }
        .label { font-weight: bold; color: #555; }
        .value { color: #333; }
        .footer { text-align: center; padding: 20px; color: #777; font-size: 12px; }
        .warning { background-color: #fff3cd; border-left: 3px solid #ffc107; padding: 10px; margin: 15px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Booking Awaiting Approval</h1>
        </div>
        <div class="content">
            <p>Your reservation has been received and is awaiting approval.</p>

            <div class="info-row">
                <span class="label">Resource:</span>
                <span class="value">{{.ResourceName}}</span>
            </div>

            <div class="info-row">
                <span class="label">From:</span>
                <span class="value">{{.Start}}</span>
            </div>

            <div class="info-row">
                <span class="label">Until:</span>
                <span class="value">{{.End}}</span>
            </div>

            <div class="warning">
                The time slot is held for you while the request is reviewed.
            </div>
        </div>
        <div class="footer">
            <p>CampusBook Scheduling &middot; Reservation {{.ReservationID}}</p>
        </div>
    </div>
</body>
</html>
`

// Email template for a terminal approval decision
const approvalDecisionEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2196F3; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border: 1px solid #ddd; border-top: none; }
        .info-row { margin: 10px 0; padding: 10px; background-color: white; border-left: 3px solid #2196F3; }
        .label { font-weight: bold; color: #555; }
        .value { color: #333; }
        .button { display: inline-block; padding: 12px 30px; margin: 20px 10px 10px 0; background-color: #2196F3; color: white; text-decoration: none; border-radius: 5px; }
        .footer { text-align: center; padding: 20px; color: #777; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Approval {{.Status}}</h1>
        </div>
        <div class="content">
            <div class="info-row">
                <span class="label">Resource:</span>
                <span class="value">{{.ResourceName}}</span>
            </div>

            {{if .Comments}}
            <div class="info-row">
                <span class="label">Comments:</span>
                <span class="value">{{.Comments}}</span>
            </div>
            {{end}}

            <a href="{{.DetailURL}}" class="button">View Request</a>
        </div>
        <div class="footer">
            <p>CampusBook Scheduling &middot; Request {{.RequestID}}</p>
        </div>
    </div>
</body>
</html>
`

// Email template for an intermediate approval action
const approvalActionEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #9E9E9E; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border: 1px solid #ddd; border-top: none; }
        .info-row { margin: 10px 0; padding: 10px; background-color: white; border-left: 3px solid #9E9E9E; }
        .label { font-weight: bold; color: #555; }
        .value { color: #333; }
        .footer { text-align: center; padding: 20px; color: #777; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Approval Update</h1>
        </div>
        <div class="content">
            <div class="info-row">
                <span class="label">Resource:</span>
                <span class="value">{{.ResourceName}}</span>
            </div>

            <div class="info-row">
                <span class="label">Status:</span>
                <span class="value">{{.Status}} (level {{.Level}})</span>
            </div>

            {{if .Comments}}
            <div class="info-row">
                <span class="label">Comments:</span>
                <span class="value">{{.Comments}}</span>
            </div>
            {{end}}
        </div>
        <div class="footer">
            <p>CampusBook Scheduling &middot; Request {{.RequestID}}</p>
        </div>
    </div>
</body>
</html>
`
